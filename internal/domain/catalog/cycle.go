package catalog

import "aquaops/internal/core/apperror"

// cyclesPerRound is the number of visits before the service cadence repeats.
const cyclesPerRound = 4

// monthsPerCycle is the spacing between two consecutive visits.
const monthsPerCycle = 6

// EffectiveCycle maps the ordinal visit number of a client (1st, 2nd, ...) to
// the cycle length used by the mappings: 6, 12, 18 or 24 months.
// Visit 5 behaves like visit 1, visit 9 like visit 5 and so on.
func EffectiveCycle(cycleNumber int) (int, error) {
	if cycleNumber <= 0 {
		return 0, apperror.NewInvalidField("cycleNumber", cycleNumber, "cycle number must be a positive integer")
	}
	return ((cycleNumber-1)%cyclesPerRound + 1) * monthsPerCycle, nil
}

// IsCycleMonths reports whether months is a valid effective cycle.
func IsCycleMonths(months int) bool {
	return months > 0 && months%monthsPerCycle == 0 && months <= cyclesPerRound*monthsPerCycle
}
