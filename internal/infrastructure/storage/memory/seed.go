package memory

import (
	"context"
	"fmt"
	"time"

	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/domain/maintenance"
)

// DemoPlan is the plan code used by Seed.
const DemoPlan = "3200RODE"

type seedFilter struct {
	sku, name, category string
	quantity, minStock  int
}

var demoFilters = []seedFilter{
	{"SED-05", "Sediment 5 micron", "sediment", 20, 5},
	{"CARB-01", "Carbon block 10in", "carbon", 10, 4},
	{"MEM-75", "RO membrane 75 GPD", "membrane", 3, 2},
}

var demoPackages = []struct {
	code   string
	months int
	skus   map[string]int
}{
	{"PKG-6M", 6, map[string]int{"SED-05": 1}},
	{"PKG-12M", 12, map[string]int{"SED-05": 1, "CARB-01": 1}},
	{"PKG-18M", 18, map[string]int{"CARB-01": 1}},
	{"PKG-24M", 24, map[string]int{"SED-05": 1, "CARB-01": 1, "MEM-75": 1}},
}

// Seed loads a small demo data set: a catalog mapped for DemoPlan, stock at
// location, and a few clients with pending maintenances over the coming months.
func Seed(ctx context.Context, s *Store, location string, now time.Time) error {
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		cat := s.Catalog()
		inv := s.Inventory()
		mnt := s.Maintenances()

		filters := make(map[string]*catalog.Filter, len(demoFilters))
		for _, sf := range demoFilters {
			f := catalog.NewFilter(sf.sku, sf.name, sf.category)
			if err := cat.CreateFilter(ctx, f); err != nil {
				return fmt.Errorf("seed filter %s: %w", sf.sku, err)
			}
			filters[sf.sku] = f

			row := inventory.NewStock(f.ID, location)
			row.Quantity = sf.quantity
			row.MinStock = sf.minStock
			if err := inv.Create(ctx, row); err != nil {
				return fmt.Errorf("seed stock %s: %w", sf.sku, err)
			}
		}

		for _, sp := range demoPackages {
			pkg := catalog.NewPackage(sp.code, fmt.Sprintf("%d month service", sp.months), "")
			for _, sf := range demoFilters {
				if qty, ok := sp.skus[sf.sku]; ok {
					pkg.AddItem(filters[sf.sku].ID, sf.sku, qty)
				}
			}
			if err := cat.CreatePackage(ctx, pkg); err != nil {
				return fmt.Errorf("seed package %s: %w", sp.code, err)
			}
			if err := cat.CreateMapping(ctx, catalog.NewMapping(DemoPlan, sp.months, pkg.ID)); err != nil {
				return fmt.Errorf("seed mapping %s: %w", sp.code, err)
			}
		}

		plan := DemoPlan
		start := time.Date(now.Year(), now.Month(), 10, 10, 0, 0, 0, time.UTC)
		for i, name := range []string{"Demo Home Client", "Demo Office Client"} {
			dt := maintenance.DeliveryHome
			if i%2 == 1 {
				dt = maintenance.DeliveryInPerson
			}
			client := maintenance.Client{ID: id.New(), Name: name, DeliveryType: dt, CreatedAt: now}
			mnt.PutClient(ctx, client)
			mnt.PutContract(ctx, maintenance.Contract{
				ID:        id.New(),
				ClientID:  client.ID,
				PlanCode:  &plan,
				Active:    true,
				StartDate: now,
			})
			for cycle := 1; cycle <= 4; cycle++ {
				mnt.PutMaintenance(ctx, maintenance.Maintenance{
					ID:            id.New(),
					ClientID:      client.ID,
					Status:        maintenance.StatusPending,
					DeliveryType:  dt,
					ScheduledDate: start.AddDate(0, cycle-1, 0),
					CycleNumber:   cycle,
					CreatedAt:     now,
					UpdatedAt:     now,
				})
			}
		}
		return nil
	})
}
