package projection

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/maintenance"
)

var tracer = otel.Tracer("aquaops/projection")

// Catalog provides filters and the mapping index.
type Catalog interface {
	ListFilters(ctx context.Context) ([]catalog.Filter, error)
	LoadIndex(ctx context.Context) (*catalog.Index, error)
}

// StockSnapshot sums on-hand stock per filter.
type StockSnapshot interface {
	Snapshot(ctx context.Context) (map[id.ID]int, error)
}

// MaintenanceLister lists maintenances in a period.
type MaintenanceLister interface {
	List(ctx context.Context, filter maintenance.PeriodFilter) ([]maintenance.Assignment, error)
}

// Config holds projection defaults.
type Config struct {
	HorizonMonths  int
	CriticalMonths int
	// Location decides calendar month boundaries; nil means UTC.
	Location *time.Location
}

// Service loads the current state and runs Project.
type Service struct {
	catalog      Catalog
	stock        StockSnapshot
	maintenances MaintenanceLister
	cfg          Config
	now          func() time.Time
}

// NewService creates a projection service.
func NewService(catalog Catalog, stock StockSnapshot, maintenances MaintenanceLister, cfg Config) *Service {
	if cfg.HorizonMonths <= 0 {
		cfg.HorizonMonths = DefaultHorizonMonths
	}
	if cfg.CriticalMonths <= 0 {
		cfg.CriticalMonths = DefaultCriticalMonths
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		catalog:      catalog,
		stock:        stock,
		maintenances: maintenances,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Options overrides the configured horizon and threshold. Zero keeps the default.
type Options struct {
	HorizonMonths  int
	CriticalMonths int
}

// Project forecasts stock for the configured horizon starting this month.
func (s *Service) Project(ctx context.Context, opts Options) (*Projection, error) {
	ctx, span := tracer.Start(ctx, "projection.project")
	defer span.End()

	horizon := s.cfg.HorizonMonths
	if opts.HorizonMonths != 0 {
		horizon = opts.HorizonMonths
	}
	critical := s.cfg.CriticalMonths
	if opts.CriticalMonths != 0 {
		critical = opts.CriticalMonths
	}
	if horizon < 1 || horizon > MaxHorizonMonths {
		return nil, apperror.NewInvalidField("horizonMonths", horizon, fmt.Sprintf("horizonMonths must be between 1 and %d", MaxHorizonMonths))
	}
	if critical < 1 {
		return nil, apperror.NewInvalidField("criticalThresholdMonths", critical, "criticalThresholdMonths must be at least 1")
	}
	span.SetAttributes(attribute.Int("projection.horizon", horizon), attribute.Int("projection.critical", critical))

	now := s.now().In(s.cfg.Location)

	filters, err := s.catalog.ListFilters(ctx)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	idx, err := s.catalog.LoadIndex(ctx)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	stock, err := s.stock.Snapshot(ctx)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	from, to := Window(now, horizon)
	pending, err := s.maintenances.List(ctx, maintenance.PeriodFilter{
		From:   from.UTC(),
		To:     to.UTC(),
		Status: maintenance.StatusPending,
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	p := Project(Input{
		Now:            now,
		HorizonMonths:  horizon,
		CriticalMonths: critical,
		Filters:        filters,
		Stock:          stock,
		Maintenances:   pending,
		Index:          idx,
	})
	return &p, nil
}
