package catalog

import (
	"fmt"
	"strings"

	"aquaops/internal/core/apperror"
)

// Resolution is the outcome of looking up the package for a plan and cycle.
// Package is nil when the configuration is unmapped; Reason then explains why.
type Resolution struct {
	PlanCode    string   `json:"planCode"`
	CycleMonths int      `json:"cycleMonths"`
	Package     *Package `json:"package,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// Mapped reports whether a package was found.
func (r Resolution) Mapped() bool {
	return r.Package != nil
}

// Err returns the unmapped-configuration error, or nil when mapped.
func (r Resolution) Err() error {
	if r.Mapped() {
		return nil
	}
	return apperror.NewUnmappedPackage(r.PlanCode, r.CycleMonths, r.Reason)
}

// Unmapped builds a failed resolution.
func Unmapped(planCode string, cycleMonths int, reason string) Resolution {
	return Resolution{PlanCode: planCode, CycleMonths: cycleMonths, Reason: reason}
}

// NoPlanReason is reported when a maintenance has no plan code to resolve.
const NoPlanReason = "no plan code on contract"

type mappingKey struct {
	planCode    string
	cycleMonths int
}

// Index is a request-scoped, in-memory copy of the mapping table.
// Batch operations load it once and resolve every maintenance against it.
// It is not safe to keep across requests.
type Index struct {
	byKey map[mappingKey]*Package
	plans map[string]struct{}
}

// NewIndex builds an index from mappings and the packages they reference.
// Mappings pointing at unknown packages are skipped.
func NewIndex(mappings []Mapping, packages []Package) *Index {
	pkgByID := make(map[string]*Package, len(packages))
	for i := range packages {
		pkgByID[packages[i].ID.String()] = &packages[i]
	}

	idx := &Index{
		byKey: make(map[mappingKey]*Package, len(mappings)),
		plans: make(map[string]struct{}),
	}
	for _, m := range mappings {
		pkg, ok := pkgByID[m.PackageID.String()]
		if !ok {
			continue
		}
		idx.byKey[mappingKey{planCode: m.PlanCode, cycleMonths: m.CycleMonths}] = pkg
		idx.plans[m.PlanCode] = struct{}{}
	}
	return idx
}

// Resolve returns the package mapped for planCode at cycleMonths.
func (x *Index) Resolve(planCode string, cycleMonths int) Resolution {
	planCode = strings.TrimSpace(planCode)
	if planCode == "" {
		return Unmapped("", cycleMonths, NoPlanReason)
	}
	pkg, ok := x.byKey[mappingKey{planCode: planCode, cycleMonths: cycleMonths}]
	if !ok {
		return Unmapped(planCode, cycleMonths, UnmappedReason(planCode, cycleMonths))
	}
	return Resolution{PlanCode: planCode, CycleMonths: cycleMonths, Package: pkg}
}

// ResolveCycle resolves by ordinal visit number instead of cycle months.
func (x *Index) ResolveCycle(planCode string, cycleNumber int) Resolution {
	months, err := EffectiveCycle(cycleNumber)
	if err != nil {
		return Unmapped(planCode, 0, fmt.Sprintf("invalid cycle number %d", cycleNumber))
	}
	return x.Resolve(planCode, months)
}

// HasPlan reports whether the plan has at least one mapping.
func (x *Index) HasPlan(planCode string) bool {
	_, ok := x.plans[strings.TrimSpace(planCode)]
	return ok
}

// Len returns the number of indexed mappings.
func (x *Index) Len() int {
	return len(x.byKey)
}

// UnmappedReason formats the reason used when a plan has no package for a cycle.
func UnmappedReason(planCode string, cycleMonths int) string {
	return fmt.Sprintf("no mapping for plan %s at cycle %d months", planCode, cycleMonths)
}
