package queue

import "math"

const (
	// MinutesPerSlot is the flat per-position wait used at join time.
	MinutesPerSlot = 3

	// ServingWaitMinutes is the wait shown once an entry is being served.
	ServingWaitMinutes = 5

	// PrioritizeSlots and PrioritizeMinutes are what a prioritize shaves off.
	PrioritizeSlots   = 3
	PrioritizeMinutes = 10

	// PrioritizeMinWait is the floor for wait time after prioritizing.
	PrioritizeMinWait = 5

	// MaxPosition and MaxWaitMinutes fit the INT columns of the SQL store.
	MaxPosition    = math.MaxInt32
	MaxWaitMinutes = math.MaxInt32

	// MaxNudgeMinutes bounds a single nudge to one day either way.
	MaxNudgeMinutes = 24 * 60
)

// EstimateInitial returns the join-time wait in minutes for a position.
func EstimateInitial(position int) int {
	return position * MinutesPerSlot
}

// TotalAhead is the number of people in front of position, never negative.
func TotalAhead(position int) int {
	if position < 1 {
		return 0
	}
	return position - 1
}

// Progress maps a position to a 0-100 percentage: position 1 is 100, 11 and beyond is 0.
func Progress(position int) float64 {
	ahead := float64(position - 1)
	return clamp(100-(ahead/10)*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
