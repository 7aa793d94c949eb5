package convo

import (
	"sort"
	"time"
)

// Normalize produces the render-ready view of the turn list: empty final
// turns dropped, adjacent same-role turns merged when created within
// mergeWindow of each other, and the result stably sorted by creation time.
// The input is never mutated; turns in the output are deep copies. The pass
// is idempotent: normalizing its own output returns an identical transcript.
func Normalize(turns []*Turn, mergeWindow time.Duration) []*Turn {
	out := make([]*Turn, 0, len(turns))
	for _, t := range turns {
		if t.Final && t.Empty() {
			continue
		}
		out = append(out, t.Clone())
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	merged := out[:0]
	for _, t := range out {
		if len(merged) == 0 {
			merged = append(merged, t)
			continue
		}
		prev := merged[len(merged)-1]
		if canMerge(prev, t, mergeWindow) {
			prev.Parts = append(prev.Parts, t.Parts...)
			prev.Final = t.Final
			if t.UpdatedAt.After(prev.UpdatedAt) {
				prev.UpdatedAt = t.UpdatedAt
			}
			continue
		}
		merged = append(merged, t)
	}
	return merged
}

// canMerge allows folding consecutive contributions of the same speaker
// when they land close together. Tool-call turns keep their own identity.
func canMerge(prev, next *Turn, window time.Duration) bool {
	if prev.Role != next.Role || prev.Role == RoleToolCall {
		return false
	}
	return next.CreatedAt.Sub(prev.CreatedAt) <= window
}
