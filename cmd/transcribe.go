package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/durach/gromit/internal/config"
	"github.com/durach/gromit/internal/diarize"
	"github.com/durach/gromit/internal/ffmpeg"
	"github.com/durach/gromit/internal/progress"
	"github.com/durach/gromit/internal/worker"

	"github.com/spf13/cobra"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <input-file>",
	Short: "Transcribe an audio/video file with speaker diarization",
	Long: `Transcribe a recording into a speaker-labeled text transcript.

Diarization needs a Hugging Face token (hf_token in the config file, or
HUGGING_FACE_HUB_TOKEN); without one the transcript degrades gracefully
to a single speaker.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

var (
	configPath  string
	output      string
	language    string
	deviceName  string
	modelSize   string
	maxSeconds  float64
	timestamps  bool
	noMerge     bool
	numSpeakers int
	minSpeakers int
	maxSpeakers int
)

func init() {
	transcribeCmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.config/gromit/config.toml)")
	transcribeCmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: <input>_transcript.txt)")
	transcribeCmd.Flags().StringVarP(&language, "language", "l", "", "spoken language code, e.g. en, uk")
	transcribeCmd.Flags().StringVar(&deviceName, "device", "", "inference device: auto, cpu, cuda, mps")
	transcribeCmd.Flags().StringVar(&modelSize, "model", "", "whisper model size, e.g. large-v3")
	transcribeCmd.Flags().Float64Var(&maxSeconds, "max-seconds", 0, "only process the first N seconds (debugging)")
	transcribeCmd.Flags().BoolVar(&timestamps, "timestamps", false, "emit timestamped lines instead of paragraphs")
	transcribeCmd.Flags().BoolVar(&noMerge, "no-merge", false, "keep adjacent same-speaker segments separate")
	transcribeCmd.Flags().IntVar(&numSpeakers, "num-speakers", 0, "exact number of speakers, if known")
	transcribeCmd.Flags().IntVar(&minSpeakers, "min-speakers", 0, "minimum number of speakers")
	transcribeCmd.Flags().IntVar(&maxSpeakers, "max-speakers", 0, "maximum number of speakers")

	rootCmd.AddCommand(transcribeCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	inputPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", args[0])
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	if !ffmpeg.IsSupportedExtension(ext) {
		return fmt.Errorf("unsupported file type: %s", ext)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Flags beat file and environment, but only when actually set.
	if cmd.Flags().Changed("language") {
		cfg.Language = language
	}
	if cmd.Flags().Changed("device") {
		cfg.Device = deviceName
	}
	if cmd.Flags().Changed("model") {
		cfg.ModelSize = modelSize
	}
	if cmd.Flags().Changed("max-seconds") {
		cfg.MaxSeconds = maxSeconds
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reporter *progress.Reporter
	if !quiet {
		reporter = progress.New(os.Stderr)
	}

	opts := worker.Options{
		InputPath:        inputPath,
		OutputPath:       output,
		Timestamps:       timestamps,
		MergeSameSpeaker: !noMerge,
		Hints: diarize.Hints{
			NumSpeakers: numSpeakers,
			MinSpeakers: minSpeakers,
			MaxSpeakers: maxSpeakers,
		},
		Progress: reporter,
	}

	if err := worker.New(cfg).Run(ctx, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("interrupted by user")
		}
		return err
	}

	if !quiet {
		slog.Info("done")
	}
	return nil
}
