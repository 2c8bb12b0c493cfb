package feed

// DefaultVirtualizeThreshold is the item count above which consumers
// should switch to virtualized rendering
const DefaultVirtualizeThreshold = 100

// ShouldVirtualize decides whether a consumer should virtualize
// rendering of itemCount rows. Pure function, no state.
func ShouldVirtualize(itemCount, threshold int, manualOverride bool) bool {
	if manualOverride {
		return true
	}
	if threshold <= 0 {
		threshold = DefaultVirtualizeThreshold
	}
	return itemCount > threshold
}
