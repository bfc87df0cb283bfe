package workorder

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/core/tx"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/maintenance"
	"aquaops/pkg/logger"
)

var tracer = otel.Tracer("aquaops/workorder")

// Maintenances is the part of the maintenance store a generator needs.
type Maintenances interface {
	List(ctx context.Context, filter maintenance.PeriodFilter) ([]maintenance.Assignment, error)
	ListByWorkOrder(ctx context.Context, workOrderID id.ID) ([]maintenance.Maintenance, error)
	LinkWorkOrder(ctx context.Context, workOrderID id.ID, maintenanceIDs []id.ID) (int64, error)
}

// IndexLoader loads the mapping table for a batch.
type IndexLoader interface {
	LoadIndex(ctx context.Context) (*catalog.Index, error)
}

// Service generates and manages work orders.
type Service struct {
	repo         Repository
	maintenances Maintenances
	catalog      IndexLoader
	txManager    tx.Manager
	loc          *time.Location
	now          func() time.Time
}

// NewService creates a work order service. loc is the local time zone used for
// month boundaries and the default delivery date; nil means UTC.
func NewService(repo Repository, maintenances Maintenances, catalog IndexLoader, txManager tx.Manager, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:         repo,
		maintenances: maintenances,
		catalog:      catalog,
		txManager:    txManager,
		loc:          loc,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GenerateResult is a created work order plus the maintenances that contributed nothing.
type GenerateResult struct {
	WorkOrder *WorkOrder      `json:"workOrder"`
	Unmapped  []UnmappedEntry `json:"unmapped"`
}

// ParsePeriod validates the raw period inputs and normalizes the delivery type.
func ParsePeriod(year, month int, deliveryType string) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, apperror.NewInvalidField("month", month, "month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return Period{}, apperror.NewInvalidField("year", year, "year must be between 2000 and 2100")
	}
	dt, err := maintenance.ParseDeliveryType(deliveryType)
	if err != nil {
		return Period{}, err
	}
	return Period{Year: year, Month: month, DeliveryType: dt}, nil
}

// Generate creates the work order for a period.
//
// Creating the header and linking every selected maintenance commit together.
// A concurrent generation for the same slot loses on the unique index and
// reports the winner's id.
func (s *Service) Generate(ctx context.Context, year, month int, deliveryType string) (*GenerateResult, error) {
	ctx, span := tracer.Start(ctx, "workorder.generate")
	defer span.End()

	period, err := ParsePeriod(year, month, deliveryType)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("workorder.year", period.Year),
		attribute.Int("workorder.month", period.Month),
		attribute.String("workorder.delivery_type", string(period.DeliveryType)),
	)

	if existing, err := s.repo.FindByPeriod(ctx, period.Year, period.Month, period.DeliveryType); err == nil {
		return nil, s.exists(existing, period)
	} else if !apperror.IsNotFound(err) {
		return nil, apperror.Normalize(err)
	}

	idx, err := s.catalog.LoadIndex(ctx)
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	var result *GenerateResult
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// A concurrent generation may have committed since the check above.
		if existing, err := s.repo.FindByPeriod(ctx, period.Year, period.Month, period.DeliveryType); err == nil {
			return s.exists(existing, period)
		} else if !apperror.IsNotFound(err) {
			return err
		}

		selected, err := s.maintenances.List(ctx, s.eligible(period, true))
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			return apperror.NewNothingToGenerate(period.Year, period.Month, string(period.DeliveryType))
		}

		agg := Aggregate(idx, selected)
		now := s.now()
		wo := &WorkOrder{
			ID:                id.New(),
			Year:              period.Year,
			Month:             period.Month,
			DeliveryType:      period.DeliveryType,
			Status:            StatusGenerated,
			PackageSummary:    agg.Packages,
			FilterSummary:     agg.Filters,
			TotalMaintenances: agg.Total,
			UnmappedCount:     len(agg.Unmapped),
			DeliveryDate:      s.DeliveryDate(period.Year, period.Month),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.repo.Create(ctx, wo); err != nil {
			return err
		}

		ids := make([]id.ID, len(selected))
		for i, a := range selected {
			ids[i] = a.ID
		}
		linked, err := s.maintenances.LinkWorkOrder(ctx, wo.ID, ids)
		if err != nil {
			return err
		}
		if linked != int64(len(ids)) {
			return apperror.NewConflict("maintenances changed during generation, retry").
				WithDetail("selected", len(ids)).
				WithDetail("linked", linked)
		}

		for i := range agg.Unmapped {
			agg.Unmapped[i].WorkOrderID = &wo.ID
		}
		wo.Maintenances = make([]maintenance.Maintenance, len(selected))
		for i, a := range selected {
			m := a.Maintenance
			m.WorkOrderID = &wo.ID
			wo.Maintenances[i] = m
		}
		result = &GenerateResult{WorkOrder: wo, Unmapped: agg.Unmapped}
		return nil
	})
	if err != nil {
		if apperror.IsDuplicate(err) {
			if existing, findErr := s.repo.FindByPeriod(ctx, period.Year, period.Month, period.DeliveryType); findErr == nil {
				return nil, s.exists(existing, period)
			}
		}
		err = apperror.Normalize(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Info(ctx, "work order generated",
		"id", result.WorkOrder.ID,
		"year", period.Year,
		"month", period.Month,
		"delivery_type", period.DeliveryType,
		"maintenances", result.WorkOrder.TotalMaintenances,
		"unmapped", result.WorkOrder.UnmappedCount,
	)
	if n := len(result.Unmapped); n > 0 {
		logger.Warn(ctx, "work order has unmapped maintenances", "id", result.WorkOrder.ID, "count", n)
	}
	return result, nil
}

func (s *Service) exists(existing *WorkOrder, p Period) error {
	return apperror.NewWorkOrderExists(existing.ID, p.Year, p.Month, string(p.DeliveryType))
}

// eligible builds the selection for PENDING maintenances of the period.
func (s *Service) eligible(p Period, unlinkedOnly bool) maintenance.PeriodFilter {
	from := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, s.loc)
	dt := p.DeliveryType
	return maintenance.PeriodFilter{
		From:         from.UTC(),
		To:           from.AddDate(0, 1, 0).UTC(),
		Status:       maintenance.StatusPending,
		DeliveryType: &dt,
		UnlinkedOnly: unlinkedOnly,
	}
}

// DeliveryDate is the default delivery date: the 15th of the month at noon local time.
func (s *Service) DeliveryDate(year, month int) time.Time {
	return time.Date(year, time.Month(month), 15, 12, 0, 0, 0, s.loc)
}

// Aggregate resolves every maintenance against idx and totals packages and filters.
// Unmapped maintenances count toward Total and are listed, but add nothing to the summaries.
func Aggregate(idx *catalog.Index, assignments []maintenance.Assignment) Aggregation {
	agg := Aggregation{
		Packages: Summary{},
		Filters:  Summary{},
		Unmapped: []UnmappedEntry{},
	}
	for _, a := range assignments {
		agg.Total++
		res := maintenance.ResolvePackage(idx, a)
		if !res.Mapped() {
			agg.Unmapped = append(agg.Unmapped, UnmappedEntry{
				MaintenanceID: a.ID,
				ClientID:      a.ClientID,
				ScheduledDate: a.ScheduledDate,
				CycleNumber:   a.CycleNumber,
				PlanCode:      res.PlanCode,
				CycleMonths:   res.CycleMonths,
				Reason:        res.Reason,
				WorkOrderID:   a.WorkOrderID,
			})
			continue
		}
		agg.Packages.Add(res.Package.Code, 1)
		for _, item := range res.Package.Items {
			agg.Filters.Add(item.SKU, item.Quantity)
		}
	}
	return agg
}

// Reconciliation lists the unmapped maintenances of a period so an operator
// can assign a substitute plan before or after generation.
type Reconciliation struct {
	Year         int                      `json:"year"`
	Month        int                      `json:"month"`
	DeliveryType maintenance.DeliveryType `json:"deliveryType"`
	Total        int                      `json:"total"`
	Mapped       int                      `json:"mapped"`
	Unmapped     []UnmappedEntry          `json:"unmapped"`
}

// Reconcile resolves every PENDING maintenance of the period, linked or not.
func (s *Service) Reconcile(ctx context.Context, year, month int, deliveryType string) (*Reconciliation, error) {
	period, err := ParsePeriod(year, month, deliveryType)
	if err != nil {
		return nil, err
	}
	idx, err := s.catalog.LoadIndex(ctx)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	selected, err := s.maintenances.List(ctx, s.eligible(period, false))
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	agg := Aggregate(idx, selected)
	return &Reconciliation{
		Year:         period.Year,
		Month:        period.Month,
		DeliveryType: period.DeliveryType,
		Total:        agg.Total,
		Mapped:       agg.Total - len(agg.Unmapped),
		Unmapped:     agg.Unmapped,
	}, nil
}

// Get returns a work order with its linked maintenances.
func (s *Service) Get(ctx context.Context, workOrderID id.ID) (*WorkOrder, error) {
	wo, err := s.repo.GetByID(ctx, workOrderID)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	linked, err := s.maintenances.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	wo.Maintenances = linked
	return wo, nil
}

// List returns work orders, optionally restricted to a year and month.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]WorkOrder, error) {
	if filter.Month != 0 && (filter.Month < 1 || filter.Month > 12) {
		return nil, apperror.NewInvalidField("month", filter.Month, "month must be between 1 and 12")
	}
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	if orders == nil {
		orders = []WorkOrder{}
	}
	return orders, nil
}

// UpdateStatus moves a work order along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, workOrderID id.ID, status string) (*WorkOrder, error) {
	next, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	var result *WorkOrder
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		wo, err := s.repo.GetForUpdate(ctx, workOrderID)
		if err != nil {
			return err
		}
		if !wo.Status.CanTransition(next) {
			return apperror.NewInvalidStatusTransition("work order", string(wo.Status), string(next))
		}
		now := s.now()
		if err := s.repo.UpdateStatus(ctx, workOrderID, next, now); err != nil {
			return err
		}
		wo.Status = next
		wo.UpdatedAt = now
		result = wo
		return nil
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	logger.Info(ctx, "work order status changed", "id", workOrderID, "status", next)
	return result, nil
}
