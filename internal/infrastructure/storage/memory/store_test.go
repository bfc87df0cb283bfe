package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/domain/maintenance"
)

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Catalog().CreateFilter(ctx, catalog.NewFilter("SED-05", "Sediment", "")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	filters, err := s.Catalog().ListFilters(ctx)
	require.NoError(t, err)
	assert.Empty(t, filters)
}

func TestRunInTransactionRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Catalog().CreateFilter(ctx, catalog.NewFilter("SED-05", "Sediment", "")))
		panic("unexpected")
	})
	require.Error(t, err)

	filters, err := s.Catalog().ListFilters(ctx)
	require.NoError(t, err)
	assert.Empty(t, filters)
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.Catalog().CreateFilter(ctx, catalog.NewFilter("SED-05", "Sediment", ""))
		})
	})
	require.NoError(t, err)

	filters, err := s.Catalog().ListFilters(ctx)
	require.NoError(t, err)
	assert.Len(t, filters, 1)
}

func TestInventorySaveRejectsNegativeQuantity(t *testing.T) {
	ctx := context.Background()
	s := New()

	f := catalog.NewFilter("SED-05", "Sediment", "")
	require.NoError(t, s.Catalog().CreateFilter(ctx, f))
	row := inventory.NewStock(f.ID, "main")
	row.Quantity = 1
	require.NoError(t, s.Inventory().Create(ctx, row))

	row.Quantity = -1
	err := s.Inventory().Save(ctx, row)
	require.Error(t, err)

	got, err := s.Inventory().Get(ctx, f.ID, "main")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
}

func TestDuplicateSKU(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Catalog().CreateFilter(ctx, catalog.NewFilter("SED-05", "Sediment", "")))
	err := s.Catalog().CreateFilter(ctx, catalog.NewFilter("SED-05", "Other", ""))
	assert.True(t, apperror.IsDuplicate(err))
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, Seed(ctx, s, "main", now))

	filters, err := s.Catalog().ListFilters(ctx)
	require.NoError(t, err)
	assert.Len(t, filters, 3)

	mappings, err := s.Catalog().ListMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, mappings, 4)

	pending, err := s.Maintenances().List(ctx, maintenance.PeriodFilter{Status: maintenance.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 8)
	for _, a := range pending {
		require.NotNil(t, a.ContractPlanCode)
		assert.Equal(t, DemoPlan, *a.ContractPlanCode)
	}
}

func TestLinkWorkOrderSkipsLinkedAndNonPending(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Maintenances()

	other := id.New()
	pending := maintenance.Maintenance{ID: id.New(), Status: maintenance.StatusPending}
	completed := maintenance.Maintenance{ID: id.New(), Status: maintenance.StatusCompleted}
	linked := maintenance.Maintenance{ID: id.New(), Status: maintenance.StatusPending, WorkOrderID: &other}
	for _, m := range []maintenance.Maintenance{pending, completed, linked} {
		repo.PutMaintenance(ctx, m)
	}

	wo := id.New()
	n, err := repo.LinkWorkOrder(ctx, wo, []id.ID{pending.ID, completed.ID, linked.ID, id.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.ListByWorkOrder(ctx, wo)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}

func TestSaveCompletionRequiresCompletableRow(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Maintenances()

	m := maintenance.Maintenance{ID: id.New(), Status: maintenance.StatusCancelled}
	repo.PutMaintenance(ctx, m)

	m.Status = maintenance.StatusCompleted
	err := repo.SaveCompletion(ctx, &m)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	got, err := repo.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, maintenance.StatusCancelled, got.Status)
}
