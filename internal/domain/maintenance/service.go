package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/core/tx"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/inventory"
	"aquaops/pkg/logger"
)

var tracer = otel.Tracer("aquaops/maintenance")

// Catalog is the part of the catalog service used by maintenances.
type Catalog interface {
	ResolvePackage(ctx context.Context, planCode string, cycleMonths int) (catalog.Resolution, error)
	LoadIndex(ctx context.Context) (*catalog.Index, error)
}

// StockDeductor decrements stock inside the caller's transaction.
type StockDeductor interface {
	Deduct(ctx context.Context, maintenanceID id.ID, packageCode string, lines []inventory.Line) ([]inventory.Deduction, []inventory.LowStockWarning, error)
}

// Service provides maintenance operations, chiefly completion.
type Service struct {
	repo      Repository
	catalog   Catalog
	stock     StockDeductor
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new maintenance service.
func NewService(repo Repository, catalog Catalog, stock StockDeductor, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		stock:     stock,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CompletionResult is returned by a successful completion.
type CompletionResult struct {
	MaintenanceID    id.ID                       `json:"maintenanceId"`
	Status           Status                      `json:"status"`
	CompletedDate    time.Time                   `json:"completedDate"`
	ActualDate       time.Time                   `json:"actualDate"`
	PlanCode         string                      `json:"planCode"`
	CycleMonths      int                         `json:"cycleMonths"`
	Package          PackageRef                  `json:"package"`
	Deductions       []inventory.Deduction       `json:"deductions"`
	LowStockWarnings []inventory.LowStockWarning `json:"lowStockWarnings"`
}

// Complete marks a maintenance as COMPLETED and consumes its filter package from stock.
//
// Everything happens in one transaction: the maintenance row and every stock
// row are locked, all lines are checked, then stock is decremented, the usage
// ledger appended and the maintenance updated. Any failure leaves no trace.
func (s *Service) Complete(ctx context.Context, maintenanceID id.ID, in CompleteInput) (*CompletionResult, error) {
	ctx, span := tracer.Start(ctx, "maintenance.complete")
	defer span.End()
	span.SetAttributes(attribute.String("maintenance.id", maintenanceID.String()))

	var result *CompletionResult
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, maintenanceID)
		if err != nil {
			return err
		}

		if a.Status == StatusCompleted {
			return apperror.NewAlreadyCompleted(maintenanceID)
		}
		if !a.Status.CanComplete() {
			return apperror.NewInvalidStatusTransition("maintenance", string(a.Status), string(StatusCompleted))
		}

		plan, reason := a.EffectivePlan()
		if plan == "" {
			return apperror.NewMissingContract(a.ClientID, reason)
		}

		months, err := catalog.EffectiveCycle(a.CycleNumber)
		if err != nil {
			return err
		}

		res, err := s.catalog.ResolvePackage(ctx, plan, months)
		if err != nil {
			return err
		}
		if !res.Mapped() {
			return res.Err()
		}

		lines := make([]inventory.Line, 0, len(res.Package.Items))
		for _, item := range res.Package.Items {
			lines = append(lines, inventory.Line{
				FilterID: item.FilterID,
				SKU:      item.SKU,
				Quantity: item.Quantity,
			})
		}

		deductions, warnings, err := s.stock.Deduct(ctx, a.ID, res.Package.Code, lines)
		if err != nil {
			return err
		}

		now := s.now()
		actual := now
		if in.ActualDate != nil {
			actual = in.ActualDate.UTC()
		}

		m := a.Maintenance
		m.Status = StatusCompleted
		m.CompletedDate = &now
		m.ActualDate = &actual
		m.UpdatedAt = now
		if in.Notes != nil {
			m.Notes = in.Notes
		}
		if in.TechnicianID != nil {
			m.TechnicianID = in.TechnicianID
		}
		if in.Observations != nil {
			m.Observations = in.Observations
		}
		if err := s.repo.SaveCompletion(ctx, &m); err != nil {
			return fmt.Errorf("save completion: %w", err)
		}

		if warnings == nil {
			warnings = []inventory.LowStockWarning{}
		}
		result = &CompletionResult{
			MaintenanceID: m.ID,
			Status:        m.Status,
			CompletedDate: now,
			ActualDate:    actual,
			PlanCode:      plan,
			CycleMonths:   months,
			Package: PackageRef{
				ID:   res.Package.ID,
				Code: res.Package.Code,
				Name: res.Package.Name,
			},
			Deductions:       deductions,
			LowStockWarnings: warnings,
		}
		return nil
	})
	if err != nil {
		err = apperror.Normalize(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Info(ctx, "maintenance completed",
		"maintenance_id", maintenanceID,
		"package", result.Package.Code,
		"lines", len(result.Deductions),
	)
	for _, w := range result.LowStockWarnings {
		logger.Warn(ctx, "filter below minimum stock",
			"sku", w.SKU,
			"quantity", w.Quantity,
			"min_stock", w.MinStock,
			"shortage", w.Shortage,
		)
	}

	return result, nil
}

// Get returns a maintenance with its contract plan.
func (s *Service) Get(ctx context.Context, maintenanceID id.ID) (*Assignment, error) {
	a, err := s.repo.Get(ctx, maintenanceID)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	return a, nil
}

// AssignPlanOverride sets a substitute plan used to resolve the package of one maintenance.
// An empty plan code clears the override. The plan must have at least one mapping.
func (s *Service) AssignPlanOverride(ctx context.Context, maintenanceID id.ID, planCode string) (*Assignment, error) {
	planCode = strings.TrimSpace(planCode)

	var override *string
	if planCode != "" {
		idx, err := s.catalog.LoadIndex(ctx)
		if err != nil {
			return nil, apperror.Normalize(err)
		}
		if !idx.HasPlan(planCode) {
			return nil, apperror.NewInvalidField("planCode", planCode, "plan has no filter package mappings")
		}
		override = &planCode
	}

	var result *Assignment
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, maintenanceID)
		if err != nil {
			return err
		}
		if a.Status.IsFinal() {
			return apperror.NewInvalidStatusTransition("maintenance", string(a.Status), "plan override")
		}
		if err := s.repo.SetPlanOverride(ctx, maintenanceID, override); err != nil {
			return err
		}
		a.PlanOverride = override
		result = a
		return nil
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	logger.Info(ctx, "maintenance plan override set", "maintenance_id", maintenanceID, "plan_code", planCode)
	return result, nil
}
