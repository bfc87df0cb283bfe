// Package memory is an in-memory transactional store implementing every
// repository and tx.Manager. A transaction holds the store lock and restores
// a snapshot of the whole state when the callback fails.
package memory

import (
	"context"
	"fmt"
	"sync"

	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/domain/maintenance"
	"aquaops/internal/domain/workorder"
)

type state struct {
	filters      map[id.ID]catalog.Filter
	packages     map[id.ID]catalog.Package
	mappings     map[id.ID]catalog.Mapping
	stock        map[id.ID]inventory.Stock
	usage        []inventory.Usage
	clients      map[id.ID]maintenance.Client
	contracts    map[id.ID]maintenance.Contract
	maintenances map[id.ID]maintenance.Maintenance
	workOrders   map[id.ID]workorder.WorkOrder
}

func newState() state {
	return state{
		filters:      map[id.ID]catalog.Filter{},
		packages:     map[id.ID]catalog.Package{},
		mappings:     map[id.ID]catalog.Mapping{},
		stock:        map[id.ID]inventory.Stock{},
		clients:      map[id.ID]maintenance.Client{},
		contracts:    map[id.ID]maintenance.Contract{},
		maintenances: map[id.ID]maintenance.Maintenance{},
		workOrders:   map[id.ID]workorder.WorkOrder{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.filters {
		c.filters[k] = v
	}
	for k, v := range s.packages {
		c.packages[k] = clonePackage(v)
	}
	for k, v := range s.mappings {
		c.mappings[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	c.usage = append([]inventory.Usage(nil), s.usage...)
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.contracts {
		c.contracts[k] = v
	}
	for k, v := range s.maintenances {
		c.maintenances[k] = v
	}
	for k, v := range s.workOrders {
		c.workOrders[k] = cloneWorkOrder(v)
	}
	return c
}

func clonePackage(p catalog.Package) catalog.Package {
	p.Items = append([]catalog.PackageItem(nil), p.Items...)
	return p
}

func cloneSummary(s workorder.Summary) workorder.Summary {
	c := make(workorder.Summary, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

func cloneWorkOrder(wo workorder.WorkOrder) workorder.WorkOrder {
	wo.PackageSummary = cloneSummary(wo.PackageSummary)
	wo.FilterSummary = cloneSummary(wo.FilterSummary)
	wo.Maintenances = nil
	return wo
}

// Store holds all data in process memory.
type Store struct {
	mu    sync.Mutex
	state state
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock takes the store lock unless the caller is inside a transaction,
// which already holds it.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			err = fmt.Errorf("transaction panic: %v", p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Ping implements the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Catalog returns the catalog repository.
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s: s} }

// Inventory returns the inventory repository.
func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{s: s} }

// Maintenances returns the maintenance repository.
func (s *Store) Maintenances() *MaintenanceRepo { return &MaintenanceRepo{s: s} }

// WorkOrders returns the work order repository.
func (s *Store) WorkOrders() *WorkOrderRepo { return &WorkOrderRepo{s: s} }
