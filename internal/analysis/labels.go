package analysis

import "fmt"

// bandLabels names terrain tiers for the common band counts, lowest first.
var bandLabels = map[int][]string{
	1: {"Ground"},
	2: {"Low", "High"},
	3: {"Low", "Mid", "High"},
	4: {"Deep", "Low", "Mid", "High"},
	5: {"Deep", "Low", "Mid", "High", "Peak"},
}

// BandLabels returns n labels in ascending brightness order.
//
// Counts 1 through 5 use terrain names; any other count uses "Level_N"
// (1-based). Returns nil for n <= 0.
func BandLabels(n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	if names, ok := bandLabels[n]; ok {
		copy(out, names)
		return out
	}
	for i := range out {
		out[i] = fmt.Sprintf("Level_%d", i+1)
	}
	return out
}
