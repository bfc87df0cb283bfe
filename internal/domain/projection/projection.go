// Package projection forecasts filter stock-outs from current stock and the
// pending maintenance schedule. It only reads; nothing is persisted.
package projection

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"aquaops/internal/core/id"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/maintenance"
)

const (
	DefaultHorizonMonths  = 6
	DefaultCriticalMonths = 4
	MaxHorizonMonths      = 36
)

// Input is the state a projection is computed from.
type Input struct {
	// Now fixes the first bucket and the start of the window. Its location
	// decides which calendar month a maintenance falls in.
	Now            time.Time
	HorizonMonths  int
	CriticalMonths int

	Filters []catalog.Filter
	// Stock is on-hand quantity per filter, summed across locations.
	Stock        map[id.ID]int
	Maintenances []maintenance.Assignment
	Index        *catalog.Index
}

// Projection is the full forecast.
type Projection struct {
	StartMonth              string     `json:"startMonth"`
	HorizonMonths           int        `json:"horizonMonths"`
	CriticalThresholdMonths int        `json:"criticalThresholdMonths"`
	Coverage                []Coverage `json:"coverage"`
	Months                  []Month    `json:"months"`
	Summary                 Summary    `json:"summary"`
}

// Coverage is the per-SKU outcome over the horizon.
type Coverage struct {
	SKU                       string          `json:"sku"`
	Name                      string          `json:"name,omitempty"`
	CurrentStock              int             `json:"currentStock"`
	MonthsUntilStockout       int             `json:"monthsUntilStockout"`
	Critical                  bool            `json:"critical"`
	TotalConsumption          int             `json:"totalConsumption"`
	AverageMonthlyConsumption decimal.Decimal `json:"averageMonthlyConsumption"`
	SuggestedReorder          int             `json:"suggestedReorder"`
}

// Month is one calendar bucket of the forecast.
type Month struct {
	Month            string         `json:"month"`
	MaintenanceCount int            `json:"maintenanceCount"`
	UnmappedCount    int            `json:"unmappedCount"`
	Consumption      map[string]int `json:"consumption"`
	RemainingStock   map[string]int `json:"remainingStock"`
	Stockouts        []string       `json:"stockouts"`
}

// Summary is the headline of a projection.
type Summary struct {
	TotalFilters  int      `json:"totalFilters"`
	CriticalCount int      `json:"criticalCount"`
	CriticalSKUs  []string `json:"criticalSkus"`
	Message       string   `json:"message"`
}

// Window returns the scheduled-date range a projection reads: from now to the
// end of the last calendar bucket.
func Window(now time.Time, horizonMonths int) (time.Time, time.Time) {
	start := monthStart(now)
	return now, start.AddDate(0, horizonMonths, 0)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// Project runs the simulation. Identical input gives identical output.
func Project(in Input) Projection {
	h := in.HorizonMonths
	if h <= 0 {
		h = DefaultHorizonMonths
	}
	critical := in.CriticalMonths
	if critical <= 0 {
		critical = DefaultCriticalMonths
	}
	loc := in.Now.Location()
	from, to := Window(in.Now, h)
	start := monthStart(in.Now)

	// Starting stock by SKU
	names := make(map[string]string, len(in.Filters))
	stock := make(map[string]int, len(in.Filters))
	for _, f := range in.Filters {
		names[f.SKU] = f.Name
		stock[f.SKU] = in.Stock[f.ID]
	}

	months := make([]Month, h)
	index := make(map[string]int, h)
	for i := range months {
		key := monthKey(start.AddDate(0, i, 0))
		months[i] = Month{
			Month:          key,
			Consumption:    map[string]int{},
			RemainingStock: map[string]int{},
			Stockouts:      []string{},
		}
		index[key] = i
	}

	for _, a := range in.Maintenances {
		if a.Status != maintenance.StatusPending {
			continue
		}
		if a.ScheduledDate.Before(from) || !a.ScheduledDate.Before(to) {
			continue
		}
		i, ok := index[monthKey(a.ScheduledDate.In(loc))]
		if !ok {
			continue
		}
		months[i].MaintenanceCount++

		res := maintenance.ResolvePackage(in.Index, a)
		if !res.Mapped() {
			months[i].UnmappedCount++
			continue
		}
		for _, item := range res.Package.Items {
			months[i].Consumption[item.SKU] += item.Quantity
			if _, known := stock[item.SKU]; !known {
				stock[item.SKU] = 0
			}
		}
	}

	skus := make([]string, 0, len(stock))
	for sku := range stock {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	running := make(map[string]int, len(stock))
	stockout := make(map[string]int, len(stock))
	totals := make(map[string]int, len(stock))
	for _, sku := range skus {
		running[sku] = stock[sku]
		stockout[sku] = h
	}

	for i := range months {
		m := &months[i]
		for _, sku := range skus {
			used := m.Consumption[sku]
			running[sku] -= used
			totals[sku] += used

			remaining := running[sku]
			if remaining < 0 {
				remaining = 0
				m.Stockouts = append(m.Stockouts, sku)
			}
			m.RemainingStock[sku] = remaining

			if running[sku] < 0 && stockout[sku] == h {
				stockout[sku] = i
			}
		}
	}

	out := Projection{
		StartMonth:              monthKey(start),
		HorizonMonths:           h,
		CriticalThresholdMonths: critical,
		Coverage:                make([]Coverage, 0, len(skus)),
		Months:                  months,
		Summary: Summary{
			TotalFilters: len(skus),
			CriticalSKUs: []string{},
		},
	}

	horizon := decimal.NewFromInt(int64(h))
	for _, sku := range skus {
		c := Coverage{
			SKU:                 sku,
			Name:                names[sku],
			CurrentStock:        stock[sku],
			MonthsUntilStockout: stockout[sku],
			Critical:            stockout[sku] < critical,
			TotalConsumption:    totals[sku],
		}
		total := decimal.NewFromInt(int64(totals[sku]))
		c.AverageMonthlyConsumption = total.Div(horizon).Round(2)
		c.SuggestedReorder = suggestedReorder(total, horizon, critical, stock[sku])

		if c.Critical {
			out.Summary.CriticalCount++
			out.Summary.CriticalSKUs = append(out.Summary.CriticalSKUs, sku)
		}
		out.Coverage = append(out.Coverage, c)
	}

	out.Summary.Message = message(out.Summary, critical, h)
	return out
}

// suggestedReorder is the number of units needed to cover critical months of
// average consumption on top of the current stock, never negative.
func suggestedReorder(total, horizon decimal.Decimal, critical, current int) int {
	need := total.Mul(decimal.NewFromInt(int64(critical))).Div(horizon).Ceil()
	gap := need.Sub(decimal.NewFromInt(int64(current)))
	if gap.IsNegative() {
		return 0
	}
	return int(gap.IntPart())
}

func message(s Summary, critical, horizon int) string {
	if s.CriticalCount == 0 {
		return fmt.Sprintf("No filter runs out within %d months (%d filters, %d month horizon)", critical, s.TotalFilters, horizon)
	}
	return fmt.Sprintf("%d filter(s) will run out within %d months", s.CriticalCount, critical)
}
