// Package diarize runs the speaker-diarization collaborator and makes
// its failure modes explicit. Diarization is an enhancement, not the
// product: every failure short of cancellation is reported as a
// Degraded outcome so the caller can fall back to a single-speaker
// transcript instead of aborting the run.
package diarize

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/durach/gromit/internal/device"
	"github.com/durach/gromit/internal/pipeline"
	"github.com/durach/gromit/internal/pyrun"
)

//go:embed assets/diarize.py
var helperScript []byte

// FallbackSpeaker is the label used when diarization is unavailable.
const FallbackSpeaker = "Speaker 1"

// tokenGuidance is appended to degraded-run warnings when the model
// gate is the likely cause.
const tokenGuidance = "accept the pyannote/speaker-diarization-3.1 license " +
	"on Hugging Face and verify the token has read permission"

// Hints carries optional speaker-count information for the backend.
// Zero values mean "unknown". NumSpeakers takes precedence over the
// min/max pair.
type Hints struct {
	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int
}

// Outcome is the explicit result of a diarization attempt. Degraded
// outcomes have no segments; the caller substitutes Fallback.
type Outcome struct {
	Segments []pipeline.SpeakerSegment
	Degraded bool
	Reason   string
}

func degraded(reason string) Outcome {
	return Outcome{Degraded: true, Reason: reason}
}

// Service invokes the pyannote helper.
type Service struct {
	Runner pyrun.Runner
	// Token is the Hugging Face credential gating the diarization
	// model. Empty means diarization cannot run at all.
	Token string
}

type helperOutput struct {
	Segments []pipeline.SpeakerSegment `json:"segments"`
}

// Diarize returns the speaker intervals for audioPath, sorted by start
// time with canonical labels. The returned error is non-nil only for
// context cancellation; every other failure is folded into a Degraded
// outcome.
func (s *Service) Diarize(ctx context.Context, audioPath string, dev device.Kind, hints Hints) (Outcome, error) {
	if s.Token == "" {
		return degraded("no Hugging Face token configured; " + tokenGuidance), nil
	}

	args := []string{
		"--audio", audioPath,
		"--device", string(dev),
		"--token", s.Token,
	}
	if hints.NumSpeakers > 0 {
		args = append(args, "--num-speakers", strconv.Itoa(hints.NumSpeakers))
	} else {
		if hints.MinSpeakers > 0 {
			args = append(args, "--min-speakers", strconv.Itoa(hints.MinSpeakers))
		}
		if hints.MaxSpeakers > 0 {
			args = append(args, "--max-speakers", strconv.Itoa(hints.MaxSpeakers))
		}
	}

	out, err := s.Runner.Run(ctx, helperScript, "diarize", args...)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		return degraded(fmt.Sprintf("diarization failed (%v); %s", err, tokenGuidance)), nil
	}

	var parsed helperOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return degraded(fmt.Sprintf("unreadable diarization output: %v", err)), nil
	}

	// The backend may emit turns in any order; alignment and merging
	// need a fully sorted, canonically labeled stream.
	segs := pipeline.CanonicalizeSpeakers(pipeline.SortByStart(parsed.Segments))
	return Outcome{Segments: segs}, nil
}

// Fallback builds the single full-duration speaker stream used when
// diarization degraded.
func Fallback(duration float64) []pipeline.SpeakerSegment {
	return []pipeline.SpeakerSegment{{
		Start:   0,
		End:     duration,
		Speaker: FallbackSpeaker,
	}}
}
