package pipeline

import (
	"fmt"
	"strings"
)

// NoTranscription is returned when the transcription backend produced
// no segments at all.
const NoTranscription = "No transcription available."

// FormatConversation renders the transcript as speaker paragraphs:
// "<Speaker>: <text>" with a blank line between speaker turns.
//
// With zero or one speaker segment, alignment is skipped and all text
// is rendered under a single "Speaker 1" label. This is the degraded
// path used whenever diarization was unavailable or trivial.
func FormatConversation(res *TranscriptionResult, speakers []SpeakerSegment, mergeSameSpeaker bool) string {
	if len(res.Segments) == 0 {
		return NoTranscription
	}

	if mergeSameSpeaker {
		speakers = MergeSpeakerSegments(speakers, DefaultMinGap)
	}

	if len(speakers) <= 1 {
		return formatSingleSpeaker(res)
	}

	aligned := AssignSpeakers(res.Segments, speakers)

	var lines []string
	currentSpeaker := ""
	var currentText []string

	for _, seg := range aligned {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		if seg.Speaker != currentSpeaker {
			if currentSpeaker != "" && len(currentText) > 0 {
				lines = append(lines, currentSpeaker+": "+strings.Join(currentText, " "), "")
			}
			currentSpeaker = seg.Speaker
			currentText = []string{text}
		} else {
			currentText = append(currentText, text)
		}
	}

	if currentSpeaker != "" && len(currentText) > 0 {
		lines = append(lines, currentSpeaker+": "+strings.Join(currentText, " "))
	}

	return strings.Join(lines, "\n")
}

func formatSingleSpeaker(res *TranscriptionResult) string {
	texts := make([]string, 0, len(res.Segments))
	for _, seg := range res.Segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return "Speaker 1: " + strings.Join(texts, " ")
}

// FormatWithTimestamps renders one line per non-empty transcript
// segment: "[MM:SS - MM:SS] Speaker: text". Hours are included only for
// timestamps of an hour or more. Unlike plain formatting there is no
// degenerate path; a single fallback speaker interval still yields
// labeled, timestamped lines.
func FormatWithTimestamps(res *TranscriptionResult, speakers []SpeakerSegment, mergeSameSpeaker bool) string {
	if len(res.Segments) == 0 {
		return NoTranscription
	}

	if mergeSameSpeaker {
		speakers = MergeSpeakerSegments(speakers, DefaultMinGap)
	}

	aligned := AssignSpeakers(res.Segments, speakers)

	var sb strings.Builder
	for _, seg := range aligned {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s - %s] %s: %s",
			formatTimestamp(seg.Start), formatTimestamp(seg.End), seg.Speaker, text)
	}
	return sb.String()
}

// formatTimestamp converts seconds to MM:SS, or HH:MM:SS from one hour
// upward.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
