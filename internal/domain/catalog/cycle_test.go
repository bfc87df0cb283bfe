package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
)

func TestEffectiveCycle(t *testing.T) {
	tests := []struct {
		cycle int
		want  int
	}{
		{1, 6}, {2, 12}, {3, 18}, {4, 24},
		{5, 6}, {6, 12}, {8, 24}, {9, 6}, {13, 6},
	}
	for _, tt := range tests {
		got, err := EffectiveCycle(tt.cycle)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "cycle %d", tt.cycle)
	}
}

func TestEffectiveCycleIsPeriodic(t *testing.T) {
	for n := 1; n <= 40; n++ {
		a, err := EffectiveCycle(n)
		require.NoError(t, err)
		b, err := EffectiveCycle(n + 4)
		require.NoError(t, err)
		assert.Equal(t, a, b, "cycle %d", n)
	}
}

func TestEffectiveCycleRejectsNonPositive(t *testing.T) {
	for _, n := range []int{0, -1, -5} {
		_, err := EffectiveCycle(n)
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	}
}

func TestIsCycleMonths(t *testing.T) {
	for _, m := range []int{6, 12, 18, 24} {
		assert.True(t, IsCycleMonths(m), m)
	}
	for _, m := range []int{0, 3, 30, -6} {
		assert.False(t, IsCycleMonths(m), m)
	}
}

func testIndex() (*Index, *Package) {
	carbon := id.New()
	pkg := NewPackage("PKG-18M", "18 month service", "")
	pkg.AddItem(carbon, "CARB-01", 1)
	orphan := NewMapping("3200RODE", 24, id.New())
	return NewIndex([]Mapping{*NewMapping("3200RODE", 18, pkg.ID), *orphan}, []Package{*pkg}), pkg
}

func TestIndexResolve(t *testing.T) {
	idx, pkg := testIndex()

	res := idx.Resolve("3200RODE", 18)
	require.True(t, res.Mapped())
	assert.Equal(t, pkg.Code, res.Package.Code)
	assert.NoError(t, res.Err())

	res = idx.ResolveCycle("3200RODE", 3)
	require.True(t, res.Mapped())
	assert.Equal(t, 18, res.CycleMonths)

	res = idx.Resolve("3200RODE", 6)
	assert.False(t, res.Mapped())
	assert.Equal(t, "no mapping for plan 3200RODE at cycle 6 months", res.Reason)
	assert.True(t, apperror.HasCode(res.Err(), apperror.CodeUnmappedPackage))

	// dangling package reference is skipped
	assert.False(t, idx.Resolve("3200RODE", 24).Mapped())
	assert.Equal(t, 1, idx.Len())
}

func TestIndexResolveWithoutPlan(t *testing.T) {
	idx, _ := testIndex()

	res := idx.Resolve("  ", 6)
	assert.False(t, res.Mapped())
	assert.Equal(t, NoPlanReason, res.Reason)

	res = idx.ResolveCycle("3200RODE", 0)
	assert.False(t, res.Mapped())
}

func TestIndexHasPlan(t *testing.T) {
	idx, _ := testIndex()
	assert.True(t, idx.HasPlan("3200RODE"))
	assert.True(t, idx.HasPlan(" 3200RODE "))
	assert.False(t, idx.HasPlan("OTHER"))
}

func TestPackageValidate(t *testing.T) {
	ctx := context.Background()
	f := id.New()

	p := NewPackage("PKG", "Package", "")
	assert.Error(t, p.Validate(ctx))

	p.AddItem(f, "SED-05", 1)
	assert.NoError(t, p.Validate(ctx))

	p.AddItem(f, "SED-05", 2)
	err := p.Validate(ctx)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 2, appErr.Details["lineNo"])

	zero := NewPackage("PKG", "Package", "")
	zero.AddItem(f, "SED-05", 0)
	assert.Error(t, zero.Validate(ctx))
}

func TestMappingValidate(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, NewMapping("3200RODE", 12, id.New()).Validate(ctx))
	assert.Error(t, NewMapping("3200RODE", 9, id.New()).Validate(ctx))
	assert.Error(t, NewMapping("", 12, id.New()).Validate(ctx))
}
