package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/infrastructure/storage/memory"
)

type fixture struct {
	store   *memory.Store
	service *catalog.Service
	sed     *catalog.Filter
	carb    *catalog.Filter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	f := &fixture{
		store:   s,
		service: catalog.NewService(s.Catalog(), s),
		sed:     catalog.NewFilter("SED-05", "Sediment 5 micron", "sediment"),
		carb:    catalog.NewFilter("CARB-01", "Carbon block", "carbon"),
	}
	require.NoError(t, f.service.CreateFilter(ctx, f.sed))
	require.NoError(t, f.service.CreateFilter(ctx, f.carb))
	return f
}

func (f *fixture) createPackage(t *testing.T, code string, lines ...catalog.PackageLine) *catalog.Package {
	t.Helper()
	pkg, err := f.service.CreatePackage(context.Background(), code, code+" service", "", lines)
	require.NoError(t, err)
	return pkg
}

func TestCreatePackageDenormalizesSKU(t *testing.T) {
	f := newFixture(t)
	pkg := f.createPackage(t, "PKG-12M",
		catalog.PackageLine{FilterID: f.sed.ID, Quantity: 1},
		catalog.PackageLine{FilterID: f.carb.ID, Quantity: 2},
	)

	got, err := f.service.GetPackage(context.Background(), pkg.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "SED-05", got.Items[0].SKU)
	assert.Equal(t, "CARB-01", got.Items[1].SKU)
	assert.Equal(t, 2, got.Items[1].Quantity)
}

func TestCreatePackageUnknownFilter(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.CreatePackage(context.Background(), "PKG", "x", "", []catalog.PackageLine{
		{FilterID: id.New(), Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	packages, err := f.service.ListPackages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, packages)
}

func TestCreateMappingDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pkg := f.createPackage(t, "PKG-6M", catalog.PackageLine{FilterID: f.sed.ID, Quantity: 1})

	require.NoError(t, f.service.CreateMapping(ctx, catalog.NewMapping("3200RODE", 6, pkg.ID)))
	err := f.service.CreateMapping(ctx, catalog.NewMapping("3200RODE", 6, pkg.ID))
	assert.True(t, apperror.IsDuplicate(err))

	err = f.service.CreateMapping(ctx, catalog.NewMapping("3200RODE", 12, id.New()))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestResolvePackage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pkg := f.createPackage(t, "PKG-18M", catalog.PackageLine{FilterID: f.carb.ID, Quantity: 1})
	require.NoError(t, f.service.CreateMapping(ctx, catalog.NewMapping("3200RODE", 18, pkg.ID)))

	res, err := f.service.ResolvePackage(ctx, "3200RODE", 18)
	require.NoError(t, err)
	require.True(t, res.Mapped())
	assert.Equal(t, "PKG-18M", res.Package.Code)
	require.Len(t, res.Package.Items, 1)
	assert.Equal(t, "CARB-01", res.Package.Items[0].SKU)

	res, err = f.service.ResolvePackage(ctx, "3200RODE", 24)
	require.NoError(t, err)
	assert.False(t, res.Mapped())

	res, err = f.service.ResolvePackage(ctx, "", 24)
	require.NoError(t, err)
	assert.Equal(t, catalog.NoPlanReason, res.Reason)

	idx, err := f.service.LoadIndex(ctx)
	require.NoError(t, err)
	assert.True(t, idx.Resolve("3200RODE", 18).Mapped())
}

func TestDeleteFilterBlockedByReferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createPackage(t, "PKG-6M", catalog.PackageLine{FilterID: f.sed.ID, Quantity: 1})

	err := f.service.DeleteFilter(ctx, f.sed.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeReferencedEntity))

	require.NoError(t, f.store.Inventory().Create(ctx, inventory.NewStock(f.carb.ID, "main")))
	err = f.service.DeleteFilter(ctx, f.carb.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeReferencedEntity))

	free := catalog.NewFilter("MEM-75", "Membrane", "membrane")
	require.NoError(t, f.service.CreateFilter(ctx, free))
	require.NoError(t, f.service.DeleteFilter(ctx, free.ID))

	assert.True(t, apperror.IsNotFound(f.service.DeleteFilter(ctx, free.ID)))
}

func TestDeletePackageBlockedByMapping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pkg := f.createPackage(t, "PKG-6M", catalog.PackageLine{FilterID: f.sed.ID, Quantity: 1})
	m := catalog.NewMapping("3200RODE", 6, pkg.ID)
	require.NoError(t, f.service.CreateMapping(ctx, m))

	err := f.service.DeletePackage(ctx, pkg.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeReferencedEntity))

	require.NoError(t, f.service.DeleteMapping(ctx, m.ID))
	require.NoError(t, f.service.DeletePackage(ctx, pkg.ID))

	_, err = f.service.GetPackage(ctx, pkg.ID)
	assert.True(t, apperror.IsNotFound(err))
}
