package pipeline

// Word is a single word with its own timestamps. Alignment does not
// consume words yet; they are kept for future word-level attribution.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"word"`
}

// Segment is one transcribed interval of speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// SpeakerSegment is one "who spoke when" interval from diarization.
type SpeakerSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Duration returns the interval length in seconds.
func (s SpeakerSegment) Duration() float64 {
	return s.End - s.Start
}

// AlignedSegment is a transcript segment annotated with a resolved
// speaker label.
type AlignedSegment struct {
	Start   float64
	End     float64
	Text    string
	Speaker string
}

// TranscriptionResult is the full output of the transcription backend.
type TranscriptionResult struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
}

// UnknownSpeaker labels transcript segments whose midpoint falls inside
// no speaker interval.
const UnknownSpeaker = "Unknown"
