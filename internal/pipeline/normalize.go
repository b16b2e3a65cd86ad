package pipeline

import (
	"fmt"
	"sort"
)

// SortByStart returns a copy of segs ordered by non-decreasing start
// time. The sort is stable so ties keep their backend order.
func SortByStart(segs []SpeakerSegment) []SpeakerSegment {
	sorted := make([]SpeakerSegment, len(segs))
	copy(sorted, segs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return sorted
}

// CanonicalizeSpeakers replaces backend speaker labels with sequential
// "Speaker 1", "Speaker 2", ... names, assigned in order of first
// appearance. The input is expected to be time-sorted already so the
// numbering follows the conversation. Returns a new slice.
func CanonicalizeSpeakers(segs []SpeakerSegment) []SpeakerSegment {
	mapping := make(map[string]string)
	out := make([]SpeakerSegment, len(segs))

	for i, seg := range segs {
		name, ok := mapping[seg.Speaker]
		if !ok {
			name = fmt.Sprintf("Speaker %d", len(mapping)+1)
			mapping[seg.Speaker] = name
		}
		seg.Speaker = name
		out[i] = seg
	}
	return out
}
