package maintenance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/domain/maintenance"
	"aquaops/internal/infrastructure/storage/memory"
)

const location = "main"

type fixture struct {
	store     *memory.Store
	catalog   *catalog.Service
	inventory *inventory.Service
	service   *maintenance.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	require.NoError(t, memory.Seed(context.Background(), s, location, time.Now().UTC()))

	cat := catalog.NewService(s.Catalog(), s)
	inv := inventory.NewService(s.Inventory(), cat, s, location)
	return &fixture{
		store:     s,
		catalog:   cat,
		inventory: inv,
		service:   maintenance.NewService(s.Maintenances(), cat, inv, s),
	}
}

// newMaintenance adds a client on plan (no contract when plan is nil) with one pending visit.
func (f *fixture) newMaintenance(plan *string, cycle int) id.ID {
	ctx := context.Background()
	repo := f.store.Maintenances()
	client := maintenance.Client{ID: id.New(), Name: "Client", DeliveryType: maintenance.DeliveryHome}
	repo.PutClient(ctx, client)
	if plan != nil {
		repo.PutContract(ctx, maintenance.Contract{ID: id.New(), ClientID: client.ID, PlanCode: plan, Active: true})
	}
	mid := id.New()
	repo.PutMaintenance(ctx, maintenance.Maintenance{
		ID:            mid,
		ClientID:      client.ID,
		Status:        maintenance.StatusPending,
		DeliveryType:  maintenance.DeliveryHome,
		ScheduledDate: time.Now().UTC(),
		CycleNumber:   cycle,
	})
	return mid
}

func (f *fixture) filter(t *testing.T, sku string) catalog.Filter {
	t.Helper()
	filters, err := f.catalog.ListFilters(context.Background())
	require.NoError(t, err)
	for _, fl := range filters {
		if fl.SKU == sku {
			return fl
		}
	}
	t.Fatalf("filter %s not seeded", sku)
	return catalog.Filter{}
}

func (f *fixture) setStock(t *testing.T, sku string, quantity int) {
	t.Helper()
	ctx := context.Background()
	row, err := f.store.Inventory().Get(ctx, f.filter(t, sku).ID, location)
	require.NoError(t, err)
	row.Quantity = quantity
	require.NoError(t, f.store.Inventory().Save(ctx, row))
}

func (f *fixture) stock(t *testing.T, sku string) int {
	t.Helper()
	row, err := f.store.Inventory().Get(context.Background(), f.filter(t, sku).ID, location)
	require.NoError(t, err)
	return row.Quantity
}

func plan(code string) *string { return &code }

func TestCompleteConsumesPackage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setStock(t, "CARB-01", 1)
	mid := f.newMaintenance(plan(memory.DemoPlan), 3)

	notes := "replaced carbon block"
	result, err := f.service.Complete(ctx, mid, maintenance.CompleteInput{Notes: &notes})
	require.NoError(t, err)

	assert.Equal(t, maintenance.StatusCompleted, result.Status)
	assert.Equal(t, 18, result.CycleMonths)
	assert.Equal(t, "PKG-18M", result.Package.Code)
	require.Len(t, result.Deductions, 1)
	assert.Equal(t, 1, result.Deductions[0].Before)
	assert.Equal(t, 0, result.Deductions[0].After)
	require.Len(t, result.LowStockWarnings, 1)
	assert.Equal(t, "CARB-01", result.LowStockWarnings[0].SKU)

	assert.Equal(t, 0, f.stock(t, "CARB-01"))

	usage, err := f.inventory.UsageByMaintenance(ctx, mid)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "CARB-01", usage[0].SKU)
	assert.Equal(t, 1, usage[0].QuantityUsed)

	got, err := f.service.Get(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedDate)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)
}

func TestCompleteTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mid := f.newMaintenance(plan(memory.DemoPlan), 4)

	_, err := f.service.Complete(ctx, mid, maintenance.CompleteInput{})
	require.NoError(t, err)
	sedAfterFirst := f.stock(t, "SED-05")

	_, err = f.service.Complete(ctx, mid, maintenance.CompleteInput{})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyCompleted))

	assert.Equal(t, sedAfterFirst, f.stock(t, "SED-05"))
	usage, err := f.inventory.UsageByMaintenance(ctx, mid)
	require.NoError(t, err)
	assert.Len(t, usage, 3)
}

func TestConcurrentCompletionsNeverOversell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setStock(t, "CARB-01", 5)

	const n = 20
	ids := make([]id.ID, n)
	for i := range ids {
		ids[i] = f.newMaintenance(plan(memory.DemoPlan), 3)
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Complete(ctx, ids[i], maintenance.CompleteInput{})
		}(i)
	}
	wg.Wait()

	var succeeded, ledgerRows int
	for i, err := range errs {
		usage, uerr := f.inventory.UsageByMaintenance(ctx, ids[i])
		require.NoError(t, uerr)
		ledgerRows += len(usage)

		got, gerr := f.service.Get(ctx, ids[i])
		require.NoError(t, gerr)
		if err == nil {
			succeeded++
			assert.Equal(t, maintenance.StatusCompleted, got.Status)
			continue
		}
		assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock), err.Error())
		assert.Equal(t, maintenance.StatusPending, got.Status)
		assert.Empty(t, usage)
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, ledgerRows)
	assert.Equal(t, 0, f.stock(t, "CARB-01"))
}

func TestConcurrentCompletionOfSameMaintenance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setStock(t, "CARB-01", 10)
	mid := f.newMaintenance(plan(memory.DemoPlan), 3)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Complete(ctx, mid, maintenance.CompleteInput{})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyCompleted), err.Error())
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, f.stock(t, "CARB-01"))
}

func TestCompleteWithShortageLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setStock(t, "MEM-75", 0)
	mid := f.newMaintenance(plan(memory.DemoPlan), 4)

	_, err := f.service.Complete(ctx, mid, maintenance.CompleteInput{})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	assert.Equal(t, 20, f.stock(t, "SED-05"))
	assert.Equal(t, 10, f.stock(t, "CARB-01"))

	got, err := f.service.Get(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusPending, got.Status)

	usage, err := f.inventory.UsageByMaintenance(ctx, mid)
	require.NoError(t, err)
	assert.Empty(t, usage)
}

func TestCompleteRequiresContractAndMapping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Complete(ctx, f.newMaintenance(nil, 1), maintenance.CompleteInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeMissingContract))

	_, err = f.service.Complete(ctx, f.newMaintenance(plan(" "), 1), maintenance.CompleteInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeMissingContract))

	_, err = f.service.Complete(ctx, f.newMaintenance(plan("UNKNOWN"), 1), maintenance.CompleteInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnmappedPackage))

	_, err = f.service.Complete(ctx, id.New(), maintenance.CompleteInput{})
	assert.True(t, apperror.IsNotFound(err))

	assert.Equal(t, 20, f.stock(t, "SED-05"))
}

func TestCompleteCancelledMaintenance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mid := f.newMaintenance(plan(memory.DemoPlan), 1)

	a, err := f.service.Get(ctx, mid)
	require.NoError(t, err)
	m := a.Maintenance
	m.Status = maintenance.StatusCancelled
	f.store.Maintenances().PutMaintenance(ctx, m)

	_, err = f.service.Complete(ctx, mid, maintenance.CompleteInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatusTransition))
}

func TestPlanOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mid := f.newMaintenance(plan("UNKNOWN"), 1)

	_, err := f.service.AssignPlanOverride(ctx, mid, "NOPE")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	a, err := f.service.AssignPlanOverride(ctx, mid, memory.DemoPlan)
	require.NoError(t, err)
	require.NotNil(t, a.PlanOverride)
	assert.Equal(t, memory.DemoPlan, *a.PlanOverride)

	result, err := f.service.Complete(ctx, mid, maintenance.CompleteInput{})
	require.NoError(t, err)
	assert.Equal(t, memory.DemoPlan, result.PlanCode)
	assert.Equal(t, "PKG-6M", result.Package.Code)

	_, err = f.service.AssignPlanOverride(ctx, mid, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatusTransition))
}

func TestPlanOverrideCanBeCleared(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mid := f.newMaintenance(plan(memory.DemoPlan), 2)

	_, err := f.service.AssignPlanOverride(ctx, mid, memory.DemoPlan)
	require.NoError(t, err)
	a, err := f.service.AssignPlanOverride(ctx, mid, "")
	require.NoError(t, err)
	assert.Nil(t, a.PlanOverride)
}
