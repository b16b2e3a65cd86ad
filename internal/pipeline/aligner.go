package pipeline

// AssignSpeakers labels each transcript segment with the speaker whose
// interval contains the segment's midpoint (bounds inclusive). The
// speaker stream is scanned in order and the first containing interval
// wins; with an overlapping stream the earliest interval therefore
// takes the segment. Segments whose midpoint no interval contains get
// UnknownSpeaker. Neither input is modified; output order follows the
// transcript order.
func AssignSpeakers(segs []Segment, speakers []SpeakerSegment) []AlignedSegment {
	aligned := make([]AlignedSegment, 0, len(segs))

	for _, seg := range segs {
		mid := (seg.Start + seg.End) / 2

		speaker := UnknownSpeaker
		for _, sp := range speakers {
			if sp.Start <= mid && mid <= sp.End {
				speaker = sp.Speaker
				break
			}
		}

		aligned = append(aligned, AlignedSegment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: speaker,
		})
	}
	return aligned
}
