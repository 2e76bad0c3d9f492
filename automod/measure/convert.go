package measure

import (
	"math"
)

// Heat at or below this means "no standing violations".
const MinHeat = -1.0

// Converts decayed heat to a ladder index: ceil(heat).
func HeatToIndex(heat float64) int {
	return int(math.Ceil(heat))
}

// Converts a ladder index to the 1-based counter shown to players and admins.
// Indexes below zero all display as 1.
func IndexToDisplayCounter(idx int) int {
	if idx < 0 {
		idx = 0
	}
	return idx + 1
}

// Inverse of the display convention, used when an admin sets a counter.
func DisplayCounterToHeat(counter float64) float64 {
	return counter - 1
}
