package inventory_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquaops/internal/core/id"
)

func TestLockQueryLocksStockRowOnly(t *testing.T) {
	b := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	fid := id.New()

	sql, args, err := lockQuery(b, fid, "main").ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT s.id, s.filter_id, COALESCE(f.sku, '') AS sku, s.item_name, s.location, "+
			"s.quantity, s.min_stock, s.last_restocked, s.updated_at FROM inventory s "+
			"LEFT JOIN filters f ON f.id = s.filter_id "+
			"WHERE s.filter_id = $1 AND s.location = $2 FOR UPDATE OF s",
		sql)
	assert.Equal(t, []any{fid.String(), "main"}, args)
}

func TestUsageColumnsMatchCopyValues(t *testing.T) {
	// COPY relies on value order matching the column list
	assert.Equal(t, []string{
		"id", "maintenance_id", "filter_id", "quantity_used",
		"package_code", "location", "deducted_at", "notes",
	}, usageColumns)
}
