package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/core/tx"
	"aquaops/internal/domain/catalog"
	"aquaops/pkg/logger"
)

// FilterLister is the part of the catalog the overview needs.
type FilterLister interface {
	ListFilters(ctx context.Context) ([]catalog.Filter, error)
}

// Service provides stock operations.
type Service struct {
	repo      Repository
	filters   FilterLister
	txManager tx.Manager
	location  string
	now       func() time.Time
}

// NewService creates an inventory service deducting from the given warehouse location.
func NewService(repo Repository, filters FilterLister, txManager tx.Manager, location string) *Service {
	return &Service{
		repo:      repo,
		filters:   filters,
		txManager: txManager,
		location:  location,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Location returns the canonical warehouse location used for deductions.
func (s *Service) Location() string {
	return s.location
}

// Deduct decrements stock for a completed maintenance and appends one ledger row per line.
//
// Must run inside a transaction. Every row is locked and checked before any is
// written, so a shortage on one line leaves all rows untouched.
func (s *Service) Deduct(ctx context.Context, maintenanceID id.ID, packageCode string, lines []Line) ([]Deduction, []LowStockWarning, error) {
	lines = mergeLines(lines)

	// Phase 1: lock and check every row
	rows := make([]*Stock, len(lines))
	for i, line := range lines {
		row, err := s.repo.GetForUpdate(ctx, line.FilterID, s.location)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, nil, apperror.NewNoInventoryRecord(line.SKU, s.location)
			}
			return nil, nil, fmt.Errorf("lock stock for %s: %w", line.SKU, err)
		}
		if row.Quantity < line.Quantity {
			return nil, nil, apperror.NewInsufficientStock(line.SKU, line.Quantity, row.Quantity)
		}
		rows[i] = row
	}

	// Phase 2: write
	now := s.now()
	deductions := make([]Deduction, 0, len(lines))
	var warnings []LowStockWarning
	usage := make([]Usage, 0, len(lines))

	for i, line := range lines {
		row := rows[i]
		before := row.Quantity
		row.Quantity -= line.Quantity
		row.UpdatedAt = now
		if err := s.repo.Save(ctx, row); err != nil {
			return nil, nil, fmt.Errorf("decrement stock for %s: %w", line.SKU, err)
		}

		deductions = append(deductions, Deduction{
			FilterID: line.FilterID,
			SKU:      line.SKU,
			Required: line.Quantity,
			Before:   before,
			After:    row.Quantity,
			MinStock: row.MinStock,
		})
		if row.IsLow() {
			warnings = append(warnings, LowStockWarning{
				FilterID: line.FilterID,
				SKU:      line.SKU,
				Quantity: row.Quantity,
				MinStock: row.MinStock,
				Shortage: row.MinStock - row.Quantity,
			})
		}
		usage = append(usage, Usage{
			ID:            id.New(),
			MaintenanceID: maintenanceID,
			FilterID:      line.FilterID,
			SKU:           line.SKU,
			QuantityUsed:  line.Quantity,
			PackageCode:   packageCode,
			Location:      s.location,
			DeductedAt:    now,
			Notes:         fmt.Sprintf("package %s", packageCode),
		})
	}

	if err := s.repo.InsertUsage(ctx, usage); err != nil {
		return nil, nil, fmt.Errorf("insert usage ledger: %w", err)
	}

	return deductions, warnings, nil
}

// mergeLines sums duplicate filters and orders lines by filter ID so
// concurrent deductions always lock rows in the same order.
func mergeLines(lines []Line) []Line {
	byFilter := make(map[id.ID]int, len(lines))
	merged := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := byFilter[l.FilterID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		byFilter[l.FilterID] = len(merged)
		merged = append(merged, l)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].FilterID.String() < merged[j].FilterID.String()
	})
	return merged
}

// RestockInput describes a manual stock increase.
type RestockInput struct {
	FilterID id.ID
	Location string
	Quantity int
	MinStock *int
}

// Restock increases stock for a filter, creating the row when it does not exist.
func (s *Service) Restock(ctx context.Context, in RestockInput) (*Stock, error) {
	if in.Quantity < 1 {
		return nil, apperror.NewInvalidField("quantity", in.Quantity, "quantity must be at least 1")
	}
	if in.MinStock != nil && *in.MinStock < 0 {
		return nil, apperror.NewInvalidField("minStock", *in.MinStock, "minStock cannot be negative")
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = s.location
	}

	var result *Stock
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		row, err := s.repo.GetForUpdate(ctx, in.FilterID, location)
		now := s.now()
		switch {
		case apperror.IsNotFound(err):
			row = NewStock(in.FilterID, location)
			row.Quantity = in.Quantity
			row.LastRestocked = &now
			row.UpdatedAt = now
			if in.MinStock != nil {
				row.MinStock = *in.MinStock
			}
			if err := s.repo.Create(ctx, row); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			row.Quantity += in.Quantity
			row.LastRestocked = &now
			row.UpdatedAt = now
			if in.MinStock != nil {
				row.MinStock = *in.MinStock
			}
			if err := s.repo.Save(ctx, row); err != nil {
				return err
			}
		}
		result = row
		return nil
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	logger.Info(ctx, "filter restocked",
		"filter_id", in.FilterID,
		"location", location,
		"added", in.Quantity,
		"quantity", result.Quantity,
	)
	return result, nil
}

// SetMinStock changes the reorder threshold of an existing row.
func (s *Service) SetMinStock(ctx context.Context, filterID id.ID, location string, minStock int) (*Stock, error) {
	if minStock < 0 {
		return nil, apperror.NewInvalidField("minStock", minStock, "minStock cannot be negative")
	}
	if strings.TrimSpace(location) == "" {
		location = s.location
	}

	var result *Stock
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		row, err := s.repo.GetForUpdate(ctx, filterID, location)
		if err != nil {
			return err
		}
		row.MinStock = minStock
		row.UpdatedAt = s.now()
		if err := s.repo.Save(ctx, row); err != nil {
			return err
		}
		result = row
		return nil
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	return result, nil
}

// Overview combines the catalog with stock rows and the latest ledger entries.
func (s *Service) Overview(ctx context.Context, recentLimit int) (*Overview, error) {
	filters, err := s.filters.ListFilters(ctx)
	if err != nil {
		return nil, apperror.Normalize(fmt.Errorf("list filters: %w", err))
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Normalize(fmt.Errorf("list stock: %w", err))
	}
	recent, err := s.repo.ListRecentUsage(ctx, recentLimit)
	if err != nil {
		return nil, apperror.Normalize(fmt.Errorf("list usage: %w", err))
	}

	byFilter := make(map[id.ID][]Stock)
	for _, r := range rows {
		if r.FilterID == nil {
			continue
		}
		byFilter[*r.FilterID] = append(byFilter[*r.FilterID], r)
	}

	out := &Overview{
		Filters:     make([]FilterStock, 0, len(filters)),
		RecentUsage: recent,
	}
	for _, f := range filters {
		fs := FilterStock{
			FilterID:  f.ID,
			SKU:       f.SKU,
			Name:      f.Name,
			Category:  f.Category,
			Locations: byFilter[f.ID],
		}
		if fs.Locations == nil {
			fs.Locations = []Stock{}
		}
		for _, loc := range fs.Locations {
			fs.TotalQuantity += loc.Quantity
			fs.MinStock += loc.MinStock
			if loc.IsLow() {
				fs.IsLow = true
			}
		}
		if fs.IsLow {
			out.LowStockCount++
		}
		out.Filters = append(out.Filters, fs)
	}
	if out.RecentUsage == nil {
		out.RecentUsage = []Usage{}
	}
	return out, nil
}

// LowStock returns rows below their minimum, ordered by SKU.
func (s *Service) LowStock(ctx context.Context) ([]Stock, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	low := make([]Stock, 0)
	for _, r := range rows {
		if r.FilterID != nil && r.IsLow() {
			low = append(low, r)
		}
	}
	return low, nil
}

// UsageByMaintenance returns the ledger rows written by one completion.
func (s *Service) UsageByMaintenance(ctx context.Context, maintenanceID id.ID) ([]Usage, error) {
	rows, err := s.repo.ListUsageByMaintenance(ctx, maintenanceID)
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	if rows == nil {
		rows = []Usage{}
	}
	return rows, nil
}

// Snapshot sums on-hand quantity per filter across all locations.
// Rows without a filter reference are ignored.
func (s *Service) Snapshot(ctx context.Context) (map[id.ID]int, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	return SumByFilter(rows), nil
}

// SumByFilter sums quantities per filter, skipping rows without one.
func SumByFilter(rows []Stock) map[id.ID]int {
	totals := make(map[id.ID]int)
	for _, r := range rows {
		if r.FilterID == nil {
			continue
		}
		totals[*r.FilterID] += r.Quantity
	}
	return totals
}
