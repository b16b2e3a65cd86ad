package diarize

import (
	"context"
	"strings"
	"testing"

	"github.com/durach/gromit/internal/device"
)

func TestDiarize_MissingTokenDegrades(t *testing.T) {
	s := &Service{}
	out, err := s.Diarize(context.Background(), "whatever.wav", device.CPU, Hints{})
	if err != nil {
		t.Fatalf("Diarize: %v", err)
	}
	if !out.Degraded {
		t.Fatal("missing token did not degrade")
	}
	if !strings.Contains(out.Reason, "token") {
		t.Errorf("reason %q does not mention the token", out.Reason)
	}
	if len(out.Segments) != 0 {
		t.Errorf("degraded outcome carries segments: %v", out.Segments)
	}
}

func TestDiarize_HelperFailureDegrades(t *testing.T) {
	// A broken interpreter stands in for any backend failure: the
	// outcome must degrade, not error.
	s := &Service{Token: "hf_test"}
	s.Runner.Python = "no-such-python"

	out, err := s.Diarize(context.Background(), "whatever.wav", device.CPU, Hints{})
	if err != nil {
		t.Fatalf("Diarize returned error %v, want degraded outcome", err)
	}
	if !out.Degraded {
		t.Fatal("helper failure did not degrade")
	}
}

func TestDiarize_CancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Service{Token: "hf_test"}
	_, err := s.Diarize(ctx, "whatever.wav", device.CPU, Hints{})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFallback(t *testing.T) {
	segs := Fallback(42.5)
	if len(segs) != 1 {
		t.Fatalf("Fallback returned %d segments, want 1", len(segs))
	}
	s := segs[0]
	if s.Start != 0 || s.End != 42.5 || s.Speaker != FallbackSpeaker {
		t.Errorf("Fallback = %+v", s)
	}
}
