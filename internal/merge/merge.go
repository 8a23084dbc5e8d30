package merge

import (
	"sort"

	"tracker-superacres/internal/shared/geo"
)

// DedupThresholdM is the minimum spacing kept between consecutive merged
// points. Overlap between the foreground and background channels is resolved
// here and nowhere else; a near-duplicate fix recorded by both channels
// collapses onto the first kept point.
const DedupThresholdM = 3.0

// Reconcile combines the in-memory foreground samples with the durable
// background samples into one canonical route.
//
// The two channels record independently and give no ordering guarantee
// against each other, so the combined sequence is stable-sorted by timestamp
// (a fix without a timestamp sorts first) and then thinned with a greedy
// single pass: each point is kept only if it is more than DedupThresholdM
// from the last kept point. Greedy thinning is deliberately not a globally
// optimal reconciliation; it is cheap, deterministic and idempotent.
//
// If the merged result has fewer than two points the foreground buffer is
// returned unchanged, so a usable foreground history is never discarded.
func Reconcile(foreground, background []geo.Coordinate) []geo.Coordinate {
	combined := make([]geo.Coordinate, 0, len(foreground)+len(background))
	combined = append(combined, foreground...)
	combined = append(combined, background...)

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Timestamp < combined[j].Timestamp
	})

	merged := dedup(combined)
	if len(merged) < 2 {
		return foreground
	}
	return merged
}

func dedup(points []geo.Coordinate) []geo.Coordinate {
	if len(points) == 0 {
		return nil
	}
	kept := []geo.Coordinate{points[0]}
	for _, p := range points[1:] {
		if geo.DistanceM(kept[len(kept)-1], p) > DedupThresholdM {
			kept = append(kept, p)
		}
	}
	return kept
}
