package workorder_test

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
	"aquaops/internal/domain/maintenance"
	"aquaops/internal/domain/workorder"
	"aquaops/internal/infrastructure/storage/memory"
)

const plan = "3200RODE"

type fixture struct {
	store   *memory.Store
	catalog *catalog.Service
	service *workorder.Service
	client  map[maintenance.DeliveryType]id.ID
}

// newFixture maps plan to PKG-6M (SED-05) and PKG-12M (SED-05, CARB-01).
// Cycles 3 and 4 stay unmapped.
func newFixture(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	cat := catalog.NewService(s.Catalog(), s)

	sed := catalog.NewFilter("SED-05", "Sediment", "")
	carb := catalog.NewFilter("CARB-01", "Carbon", "")
	require.NoError(t, cat.CreateFilter(ctx, sed))
	require.NoError(t, cat.CreateFilter(ctx, carb))

	p6, err := cat.CreatePackage(ctx, "PKG-6M", "6 month", "", []catalog.PackageLine{{FilterID: sed.ID, Quantity: 1}})
	require.NoError(t, err)
	p12, err := cat.CreatePackage(ctx, "PKG-12M", "12 month", "", []catalog.PackageLine{
		{FilterID: sed.ID, Quantity: 1},
		{FilterID: carb.ID, Quantity: 2},
	})
	require.NoError(t, err)
	require.NoError(t, cat.CreateMapping(ctx, catalog.NewMapping(plan, 6, p6.ID)))
	require.NoError(t, cat.CreateMapping(ctx, catalog.NewMapping(plan, 12, p12.ID)))

	f := &fixture{
		store:   s,
		catalog: cat,
		service: workorder.NewService(s.WorkOrders(), s.Maintenances(), cat, s, loc),
		client:  make(map[maintenance.DeliveryType]id.ID),
	}
	planCode := plan
	for _, dt := range []maintenance.DeliveryType{maintenance.DeliveryHome, maintenance.DeliveryInPerson} {
		c := maintenance.Client{ID: id.New(), Name: string(dt), DeliveryType: dt}
		s.Maintenances().PutClient(ctx, c)
		s.Maintenances().PutContract(ctx, maintenance.Contract{ID: id.New(), ClientID: c.ID, PlanCode: &planCode, Active: true})
		f.client[dt] = c.ID
	}
	return f
}

func (f *fixture) schedule(dt maintenance.DeliveryType, at time.Time, cycle int) id.ID {
	mid := id.New()
	f.store.Maintenances().PutMaintenance(context.Background(), maintenance.Maintenance{
		ID:            mid,
		ClientID:      f.client[dt],
		Status:        maintenance.StatusPending,
		DeliveryType:  dt,
		ScheduledDate: at,
		CycleNumber:   cycle,
	})
	return mid
}

func march(day int) time.Time {
	return time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC)
}

func TestGenerateAggregatesPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.schedule(maintenance.DeliveryHome, march(3), 1)
	f.schedule(maintenance.DeliveryHome, march(10), 2)
	unmapped := f.schedule(maintenance.DeliveryHome, march(20), 3)
	f.schedule(maintenance.DeliveryInPerson, march(5), 1)
	f.schedule(maintenance.DeliveryHome, time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC), 1)

	result, err := f.service.Generate(ctx, 2025, 3, "DOMICILIO")
	require.NoError(t, err)

	wo := result.WorkOrder
	assert.Equal(t, workorder.StatusGenerated, wo.Status)
	assert.Equal(t, maintenance.DeliveryHome, wo.DeliveryType)
	assert.Equal(t, 3, wo.TotalMaintenances)
	assert.Equal(t, 1, wo.UnmappedCount)
	assert.Equal(t, workorder.Summary{"PKG-6M": 1, "PKG-12M": 1}, wo.PackageSummary)
	assert.Equal(t, workorder.Summary{"SED-05": 2, "CARB-01": 2}, wo.FilterSummary)
	assert.Equal(t, time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), wo.DeliveryDate)

	require.Len(t, result.Unmapped, 1)
	assert.Equal(t, unmapped, result.Unmapped[0].MaintenanceID)
	assert.Equal(t, 18, result.Unmapped[0].CycleMonths)
	require.NotNil(t, result.Unmapped[0].WorkOrderID)
	assert.Equal(t, wo.ID, *result.Unmapped[0].WorkOrderID)

	got, err := f.service.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Len(t, got.Maintenances, wo.TotalMaintenances)
	for _, m := range got.Maintenances {
		require.NotNil(t, m.WorkOrderID)
		assert.Equal(t, wo.ID, *m.WorkOrderID)
	}
}

func TestGenerateTwiceReturnsExistingID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.schedule(maintenance.DeliveryHome, march(3), 1)

	first, err := f.service.Generate(ctx, 2025, 3, "DOMICILIO")
	require.NoError(t, err)

	_, err = f.service.Generate(ctx, 2025, 3, "Delivery")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeWorkOrderExists, appErr.Code)
	assert.Equal(t, first.WorkOrder.ID, appErr.Details["existingId"])

	orders, err := f.service.List(ctx, workorder.ListFilter{Year: 2025})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestGenerateConcurrentlyCreatesOneOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.schedule(maintenance.DeliveryHome, march(3), 1)
	f.schedule(maintenance.DeliveryHome, march(4), 2)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Generate(ctx, 2025, 3, "DOMICILIO")
		}(i)
	}
	wg.Wait()

	var created int
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, apperror.HasCode(err, apperror.CodeWorkOrderExists), err.Error())
	}
	assert.Equal(t, 1, created)
}

// completingLinker completes the first selected maintenance just before linking,
// as a completion committing between selection and link would.
type completingLinker struct {
	*memory.MaintenanceRepo
}

func (l completingLinker) LinkWorkOrder(ctx context.Context, workOrderID id.ID, ids []id.ID) (int64, error) {
	a, err := l.Get(ctx, ids[0])
	if err != nil {
		return 0, err
	}
	m := a.Maintenance
	m.Status = maintenance.StatusCompleted
	l.PutMaintenance(ctx, m)
	return l.MaintenanceRepo.LinkWorkOrder(ctx, workOrderID, ids)
}

// partialLinker links only the first maintenance.
type partialLinker struct {
	*memory.MaintenanceRepo
}

func (l partialLinker) LinkWorkOrder(ctx context.Context, workOrderID id.ID, ids []id.ID) (int64, error) {
	return l.MaintenanceRepo.LinkWorkOrder(ctx, workOrderID, ids[:1])
}

func assertNothingGenerated(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()

	orders, err := f.store.WorkOrders().List(ctx, workorder.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)

	all, err := f.store.Maintenances().List(ctx, maintenance.PeriodFilter{})
	require.NoError(t, err)
	for _, a := range all {
		assert.Nil(t, a.WorkOrderID)
		assert.Equal(t, maintenance.StatusPending, a.Status)
	}
}

func TestGenerateRollsBackWhenLinkingFallsShort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.schedule(maintenance.DeliveryHome, march(3), 1)
	f.schedule(maintenance.DeliveryHome, march(4), 2)

	svc := workorder.NewService(f.store.WorkOrders(), partialLinker{f.store.Maintenances()}, f.catalog, f.store, nil)
	_, err := svc.Generate(ctx, 2025, 3, "DOMICILIO")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict), err.Error())

	assertNothingGenerated(t, f)
}

func TestGenerateDoesNotLinkMaintenanceCompletedMeanwhile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.schedule(maintenance.DeliveryHome, march(3), 1)
	f.schedule(maintenance.DeliveryHome, march(4), 2)

	svc := workorder.NewService(f.store.WorkOrders(), completingLinker{f.store.Maintenances()}, f.catalog, f.store, nil)
	_, err := svc.Generate(ctx, 2025, 3, "DOMICILIO")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict), err.Error())

	assertNothingGenerated(t, f)

	// Without interference the retry succeeds.
	result, err := f.service.Generate(ctx, 2025, 3, "DOMICILIO")
	require.NoError(t, err)
	assert.Equal(t, 2, result.WorkOrder.TotalMaintenances)
}

func TestGenerateWithoutPendingMaintenances(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	done := f.schedule(maintenance.DeliveryInPerson, march(3), 1)
	m, err := f.store.Maintenances().Get(ctx, done)
	require.NoError(t, err)
	m.Status = maintenance.StatusCompleted
	f.store.Maintenances().PutMaintenance(ctx, m.Maintenance)

	_, err = f.service.Generate(ctx, 2025, 3, "PRESENCIAL")
	assert.True(t, apperror.HasCode(err, apperror.CodeNothingToGenerate))

	orders, err := f.service.List(ctx, workorder.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestGenerateValidatesPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		year  int
		month int
		dt    string
		field string
	}{
		{"month too high", 2025, 13, "DOMICILIO", "month"},
		{"month zero", 2025, 0, "DOMICILIO", "month"},
		{"year out of range", 1999, 3, "DOMICILIO", "year"},
		{"unknown delivery type", 2025, 3, "drone", "deliveryType"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Generate(ctx, tt.year, tt.month, tt.dt)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestGenerateUsesLocalMonthBoundaries(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC-6", -6*60*60)
	f := newFixture(t, loc)
	// 2025-03-31 21:00 local
	f.schedule(maintenance.DeliveryHome, time.Date(2025, 4, 1, 3, 0, 0, 0, time.UTC), 1)

	result, err := f.service.Generate(ctx, 2025, 3, "DOMICILIO")
	require.NoError(t, err)
	assert.Equal(t, 1, result.WorkOrder.TotalMaintenances)
	assert.True(t, result.WorkOrder.DeliveryDate.Equal(time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)))

	_, err = f.service.Generate(ctx, 2025, 4, "DOMICILIO")
	assert.True(t, apperror.HasCode(err, apperror.CodeNothingToGenerate))
}

func TestReconcileIncludesLinkedMaintenances(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.schedule(maintenance.DeliveryHome, march(3), 1)
	f.schedule(maintenance.DeliveryHome, march(4), 4)

	before, err := f.service.Reconcile(ctx, 2025, 3, "domicilio")
	require.NoError(t, err)
	assert.Equal(t, 2, before.Total)
	assert.Equal(t, 1, before.Mapped)
	require.Len(t, before.Unmapped, 1)
	assert.Equal(t, "no mapping for plan 3200RODE at cycle 24 months", before.Unmapped[0].Reason)

	_, err = f.service.Generate(ctx, 2025, 3, "DOMICILIO")
	require.NoError(t, err)

	after, err := f.service.Reconcile(ctx, 2025, 3, "DOMICILIO")
	require.NoError(t, err)
	assert.Equal(t, before.Total, after.Total)
	require.Len(t, after.Unmapped, 1)
	assert.NotNil(t, after.Unmapped[0].WorkOrderID)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.schedule(maintenance.DeliveryHome, march(3), 1)
	result, err := f.service.Generate(ctx, 2025, 3, "DOMICILIO")
	require.NoError(t, err)
	woID := result.WorkOrder.ID

	_, err = f.service.UpdateStatus(ctx, woID, "DELIVERED")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatusTransition))

	wo, err := f.service.UpdateStatus(ctx, woID, "DISPATCHED")
	require.NoError(t, err)
	assert.Equal(t, workorder.StatusDispatched, wo.Status)

	wo, err = f.service.UpdateStatus(ctx, woID, "DELIVERED")
	require.NoError(t, err)
	assert.Equal(t, workorder.StatusDelivered, wo.Status)

	_, err = f.service.UpdateStatus(ctx, woID, "CANCELLED")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidStatusTransition))

	_, err = f.service.UpdateStatus(ctx, woID, "LOST")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.service.UpdateStatus(ctx, id.New(), "DISPATCHED")
	assert.True(t, apperror.IsNotFound(err))
}

func TestListValidatesMonth(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.service.List(context.Background(), workorder.ListFilter{Month: 14})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
