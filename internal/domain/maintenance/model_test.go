package maintenance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquaops/internal/core/apperror"
	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
)

func TestParseDeliveryType(t *testing.T) {
	tests := []struct {
		in   string
		want DeliveryType
	}{
		{"DOMICILIO", DeliveryHome},
		{"domicilio", DeliveryHome},
		{"Delivery", DeliveryHome},
		{" PRESENCIAL ", DeliveryInPerson},
		{"Presencial", DeliveryInPerson},
	}
	for _, tt := range tests {
		got, err := ParseDeliveryType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDeliveryType("pickup")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "deliveryType", appErr.Details["field"])
}

func TestStatusRules(t *testing.T) {
	assert.True(t, StatusPending.CanComplete())
	assert.True(t, StatusRescheduled.CanComplete())
	assert.False(t, StatusCompleted.CanComplete())
	assert.False(t, StatusCancelled.CanComplete())
	assert.True(t, StatusCancelled.IsFinal())
	assert.False(t, StatusInProgress.IsFinal())
}

func TestEffectivePlan(t *testing.T) {
	plan := "3200RODE"
	override := "5000UV"
	empty := " "
	cid := id.New()

	a := Assignment{ContractID: &cid, ContractPlanCode: &plan}
	got, reason := a.EffectivePlan()
	assert.Equal(t, plan, got)
	assert.Empty(t, reason)

	a.PlanOverride = &override
	got, _ = a.EffectivePlan()
	assert.Equal(t, override, got)

	a.PlanOverride = &empty
	got, _ = a.EffectivePlan()
	assert.Equal(t, plan, got)

	got, reason = Assignment{}.EffectivePlan()
	assert.Empty(t, got)
	assert.Equal(t, "no active contract for client", reason)

	got, reason = Assignment{ContractID: &cid}.EffectivePlan()
	assert.Empty(t, got)
	assert.Equal(t, catalog.NoPlanReason, reason)
}

func TestResolvePackageAgainstIndex(t *testing.T) {
	plan := "3200RODE"
	cid := id.New()
	pkg := catalog.NewPackage("PKG-18M", "18 month", "")
	pkg.AddItem(id.New(), "CARB-01", 1)
	idx := catalog.NewIndex([]catalog.Mapping{*catalog.NewMapping(plan, 18, pkg.ID)}, []catalog.Package{*pkg})

	a := Assignment{Maintenance: Maintenance{CycleNumber: 7}, ContractID: &cid, ContractPlanCode: &plan}
	res := ResolvePackage(idx, a)
	require.True(t, res.Mapped())
	assert.Equal(t, "PKG-18M", res.Package.Code)

	a.CycleNumber = 1
	res = ResolvePackage(idx, a)
	assert.False(t, res.Mapped())
	assert.Equal(t, 6, res.CycleMonths)

	a.CycleNumber = 0
	assert.False(t, ResolvePackage(idx, a).Mapped())
}
