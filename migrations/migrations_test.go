package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptsAreGooseVersioned(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		b, err := FS.ReadFile(name)
		require.NoError(t, err)
		script := string(b)

		assert.Regexp(t, `^\d+_[a-z0-9_]+\.sql$`, name)
		up := strings.Index(script, "-- +goose Up")
		down := strings.Index(script, "-- +goose Down")
		assert.GreaterOrEqual(t, up, 0, name)
		assert.Greater(t, down, up, name)
	}
}

func TestInitCarriesUniquenessConstraints(t *testing.T) {
	b, err := FS.ReadFile("001_init.sql")
	require.NoError(t, err)
	script := string(b)

	for _, idx := range []string{
		"filters_sku_key",
		"filter_packages_code_key",
		"equipment_filter_mappings_plan_cycle_key",
		"inventory_filter_location_key",
		"work_orders_period_key",
	} {
		assert.Contains(t, script, "CREATE UNIQUE INDEX IF NOT EXISTS "+idx, idx)
	}
}
