// Package worker orchestrates a transcription run: canonicalize the
// audio, diarize, transcribe, fuse the two interval streams, write the
// transcript. Stages run strictly one after another; the only state
// they share is the read-only waveform on disk.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/durach/gromit/internal/audio"
	"github.com/durach/gromit/internal/config"
	"github.com/durach/gromit/internal/device"
	"github.com/durach/gromit/internal/diarize"
	"github.com/durach/gromit/internal/ffmpeg"
	"github.com/durach/gromit/internal/pipeline"
	"github.com/durach/gromit/internal/progress"
	"github.com/durach/gromit/internal/pyrun"
	"github.com/durach/gromit/internal/scratch"
	"github.com/durach/gromit/internal/transcribe"
)

// Diarizer produces speaker intervals, degrading instead of failing.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string, dev device.Kind, hints diarize.Hints) (diarize.Outcome, error)
}

// Transcriber produces the transcript; its failure is fatal to the run.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, dev device.Kind, language string) (*pipeline.TranscriptionResult, error)
}

// Options configures one run.
type Options struct {
	InputPath  string
	OutputPath string
	// Timestamps switches from speaker paragraphs to per-segment
	// timestamped lines.
	Timestamps bool
	// MergeSameSpeaker collapses adjacent same-speaker intervals before
	// alignment.
	MergeSameSpeaker bool
	Hints            diarize.Hints
	Progress         *progress.Reporter
}

// Pipeline bundles the collaborators a run needs.
type Pipeline struct {
	Config      *config.Config
	Diarizer    Diarizer
	Transcriber Transcriber
	Host        device.HostProbe
}

// New wires the real inference services from cfg.
func New(cfg *config.Config) *Pipeline {
	runner := pyrun.Runner{Python: cfg.Python}
	return &Pipeline{
		Config:      cfg,
		Diarizer:    &diarize.Service{Runner: runner, Token: cfg.HFToken},
		Transcriber: &transcribe.Service{Runner: runner, ModelSize: cfg.ModelSize},
		Host:        device.LocalHost{},
	}
}

// Run executes the whole pipeline. On error no output file is written;
// temporary artifacts are cleaned on every path.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	cfg := p.Config

	outputPath := opts.OutputPath
	if outputPath == "" {
		base := strings.TrimSuffix(opts.InputPath, filepath.Ext(opts.InputPath))
		outputPath = base + "_transcript.txt"
	}

	slog.Info("processing file", "input", filepath.Base(opts.InputPath), "output", outputPath)

	tracker := scratch.NewTracker("")
	defer tracker.Close()

	info := ffmpeg.LogMediaInfo(ctx, opts.InputPath)

	// Canonicalize: both backends consume mono 16 kHz WAV.
	working := opts.InputPath
	if !audio.IsWAV(working) {
		if !ffmpeg.Available() {
			return fmt.Errorf("input is not a WAV file and ffmpeg is not installed")
		}
		converted := tracker.Path(".wav")
		if err := ffmpeg.ConvertToWAV(ctx, working, converted); err != nil {
			return err
		}
		working = converted
	}

	duration := 0.0
	if wavInfo, err := audio.Probe(working); err == nil {
		duration = wavInfo.Duration()
	} else if info != nil {
		duration = info.Duration
	}

	bounded := duration
	if cfg.MaxSeconds > 0 && cfg.MaxSeconds < duration {
		bounded = cfg.MaxSeconds
		slog.Warn("bounded run: processing a prefix of the audio",
			"max_seconds", cfg.MaxSeconds, "full_seconds", fmt.Sprintf("%.1f", duration))
	}
	if bounded > 0 {
		slog.Info(fmt.Sprintf("duration: %.1f seconds (%.1f minutes), estimated processing time: ~%.0f minutes",
			bounded, bounded/60, bounded*0.15/60))
	}

	speakers, err := p.runDiarization(ctx, working, bounded, tracker, opts)
	if err != nil {
		return err
	}

	result, err := p.runTranscription(ctx, working, tracker, opts)
	if err != nil {
		return err
	}

	opts.Progress.StartStage("formatting output")
	var text string
	if opts.Timestamps {
		text = pipeline.FormatWithTimestamps(result, speakers, opts.MergeSameSpeaker)
	} else {
		text = pipeline.FormatConversation(result, speakers, opts.MergeSameSpeaker)
	}
	opts.Progress.FinishStage("formatting complete")

	if err := os.WriteFile(outputPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	slog.Info("transcript saved", "path", outputPath)
	return nil
}

// runDiarization executes the diarization stage and always comes back
// with a usable speaker stream unless the context was canceled.
func (p *Pipeline) runDiarization(ctx context.Context, working string, bounded float64, tracker *scratch.Tracker, opts Options) ([]pipeline.SpeakerSegment, error) {
	res := device.Resolve(device.Kind(p.Config.Device), device.BackendDiarization, p.Host)
	if res.Fallback {
		slog.Warn("falling back to CPU for diarization", "reason", res.Reason)
	}

	stageInput, err := p.windowFor(working, tracker)
	if err != nil {
		return nil, fmt.Errorf("bound diarization input: %w", err)
	}

	opts.Progress.StartStage("analyzing speakers (this may take a few minutes)")
	outcome, err := p.Diarizer.Diarize(ctx, stageInput, res.Device, opts.Hints)
	if err != nil {
		return nil, err
	}
	opts.Progress.FinishStage("speaker diarization complete")

	if outcome.Degraded {
		slog.Warn("diarization unavailable, continuing with a single speaker", "reason", outcome.Reason)
		return diarize.Fallback(bounded), nil
	}
	return outcome.Segments, nil
}

// runTranscription executes the transcription stage; any error here is
// fatal to the run.
func (p *Pipeline) runTranscription(ctx context.Context, working string, tracker *scratch.Tracker, opts Options) (*pipeline.TranscriptionResult, error) {
	res := device.Resolve(device.Kind(p.Config.Device), device.BackendTranscription, p.Host)
	if res.Fallback {
		slog.Warn("falling back to CPU for transcription", "reason", res.Reason)
	}

	stageInput, err := p.windowFor(working, tracker)
	if err != nil {
		return nil, fmt.Errorf("bound transcription input: %w", err)
	}

	opts.Progress.StartStage("transcribing audio")
	result, err := p.Transcriber.Transcribe(ctx, stageInput, res.Device, p.Config.Language)
	if err != nil {
		return nil, err
	}
	opts.Progress.FinishStage("transcription complete")

	slog.Info("transcription finished",
		"language", result.Language,
		"segments", len(result.Segments),
		"seconds", fmt.Sprintf("%.1f", result.Duration))
	return result, nil
}

// windowFor gives a stage its own bounded copy of the waveform. Each
// stage owns its own artifact; they never share a windowed file.
func (p *Pipeline) windowFor(working string, tracker *scratch.Tracker) (string, error) {
	if p.Config.MaxSeconds <= 0 {
		return working, nil
	}
	path, created, err := audio.Window(working, p.Config.MaxSeconds, tracker.Path(".wav"))
	if err != nil {
		return "", err
	}
	if created {
		slog.Debug("created bounded window", "path", path, "max_seconds", p.Config.MaxSeconds)
	}
	return path, nil
}
