package projection_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquaops/internal/core/apperror"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/domain/projection"
	"aquaops/internal/infrastructure/storage/memory"
)

func newService(t *testing.T) *projection.Service {
	t.Helper()
	s := memory.New()
	require.NoError(t, memory.Seed(context.Background(), s, "main", time.Now().UTC()))
	cat := catalog.NewService(s.Catalog(), s)
	inv := inventory.NewService(s.Inventory(), cat, s, "main")
	return projection.NewService(cat, inv, s.Maintenances(), projection.Config{})
}

func TestServiceProjectsSeededData(t *testing.T) {
	svc := newService(t)

	p, err := svc.Project(context.Background(), projection.Options{})
	require.NoError(t, err)
	assert.Equal(t, projection.DefaultHorizonMonths, p.HorizonMonths)
	assert.Equal(t, projection.DefaultCriticalMonths, p.CriticalThresholdMonths)
	assert.Len(t, p.Months, projection.DefaultHorizonMonths)
	assert.Len(t, p.Coverage, 3)
	assert.Equal(t, p.Summary.TotalFilters, len(p.Coverage))

	p, err = svc.Project(context.Background(), projection.Options{HorizonMonths: 12, CriticalMonths: 2})
	require.NoError(t, err)
	assert.Len(t, p.Months, 12)
	assert.Equal(t, 2, p.CriticalThresholdMonths)
}

func TestServiceValidatesOptions(t *testing.T) {
	svc := newService(t)

	_, err := svc.Project(context.Background(), projection.Options{HorizonMonths: projection.MaxHorizonMonths + 1})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "horizonMonths", appErr.Details["field"])

	_, err = svc.Project(context.Background(), projection.Options{CriticalMonths: -1})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
