// Package transcribe runs the faster-whisper collaborator. Unlike
// diarization, transcription failures are fatal to the run: the
// transcript is the product.
package transcribe

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/durach/gromit/internal/device"
	"github.com/durach/gromit/internal/pipeline"
	"github.com/durach/gromit/internal/pyrun"
)

//go:embed assets/transcribe.py
var helperScript []byte

// Service invokes the faster-whisper helper.
type Service struct {
	Runner pyrun.Runner
	// ModelSize is the whisper model name, e.g. "large-v3".
	ModelSize string
}

// Transcribe runs the model on audioPath and returns the fully
// materialized transcript. The helper streams segments internally; by
// the time this returns, the whole sequence is owned by the caller.
func (s *Service) Transcribe(ctx context.Context, audioPath string, dev device.Kind, language string) (*pipeline.TranscriptionResult, error) {
	out, err := s.Runner.Run(ctx, helperScript, "transcribe",
		"--audio", audioPath,
		"--model", s.ModelSize,
		"--device", string(dev),
		"--compute-type", computeType(dev),
		"--language", language,
	)
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}

	var result pipeline.TranscriptionResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("parse transcription output: %w", err)
	}
	return &result, nil
}

// computeType picks the quantization matching the device: half
// precision on CUDA, int8 elsewhere.
func computeType(dev device.Kind) string {
	if dev == device.CUDA {
		return "float16"
	}
	return "int8"
}
