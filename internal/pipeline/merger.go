package pipeline

// DefaultMinGap is the largest silence, in seconds, that still gets
// absorbed when merging adjacent segments of the same speaker.
const DefaultMinGap = 0.5

// MergeSpeakerSegments collapses consecutive same-speaker segments
// separated by less than minGap seconds into one segment. Input must be
// sorted by start time; the input slice is not modified.
func MergeSpeakerSegments(segs []SpeakerSegment, minGap float64) []SpeakerSegment {
	if len(segs) == 0 {
		return nil
	}

	merged := make([]SpeakerSegment, 0, len(segs))
	current := segs[0]

	for _, seg := range segs[1:] {
		if seg.Speaker == current.Speaker && seg.Start-current.End < minGap {
			current.End = seg.End
		} else {
			merged = append(merged, current)
			current = seg
		}
	}

	return append(merged, current)
}
