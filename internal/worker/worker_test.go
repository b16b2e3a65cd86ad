package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/durach/gromit/internal/config"
	"github.com/durach/gromit/internal/device"
	"github.com/durach/gromit/internal/diarize"
	"github.com/durach/gromit/internal/pipeline"
)

// writeTestWAV creates a mono 16-bit 16 kHz PCM file of the given
// duration in seconds.
func writeTestWAV(t *testing.T, path string, seconds float64) {
	t.Helper()

	frames := int(seconds * 16000)
	dataSize := frames * 2

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], 16000)
	binary.LittleEndian.PutUint32(buf[28:32], 32000)
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatal(err)
	}
}

type fakeDiarizer struct {
	outcome diarize.Outcome
	err     error
	gotPath string
	gotDev  device.Kind
}

func (f *fakeDiarizer) Diarize(ctx context.Context, audioPath string, dev device.Kind, hints diarize.Hints) (diarize.Outcome, error) {
	f.gotPath = audioPath
	f.gotDev = dev
	return f.outcome, f.err
}

type fakeTranscriber struct {
	result  *pipeline.TranscriptionResult
	err     error
	gotPath string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, dev device.Kind, language string) (*pipeline.TranscriptionResult, error) {
	f.gotPath = audioPath
	return f.result, f.err
}

func cpuConfig() *config.Config {
	cfg := config.Default()
	cfg.Device = "cpu"
	return cfg
}

func twoSpeakerFixture() (*fakeDiarizer, *fakeTranscriber) {
	d := &fakeDiarizer{outcome: diarize.Outcome{Segments: []pipeline.SpeakerSegment{
		{Start: 0, End: 5, Speaker: "Speaker 1"},
		{Start: 5, End: 8, Speaker: "Speaker 2"},
	}}}
	tr := &fakeTranscriber{result: &pipeline.TranscriptionResult{
		Language: "en",
		Duration: 8,
		Segments: []pipeline.Segment{
			{Start: 0, End: 2, Text: "hi"},
			{Start: 2, End: 4, Text: "there"},
			{Start: 6, End: 8, Text: "bye"},
		},
	}}
	return d, tr
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "meeting.wav")
	output := filepath.Join(dir, "out.txt")
	writeTestWAV(t, input, 8)

	d, tr := twoSpeakerFixture()
	p := &Pipeline{Config: cpuConfig(), Diarizer: d, Transcriber: tr, Host: device.LocalHost{}}

	err := p.Run(context.Background(), Options{
		InputPath:        input,
		OutputPath:       output,
		MergeSameSpeaker: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	want := "Speaker 1: hi there\n\nSpeaker 2: bye"
	if string(got) != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}

	if d.gotPath != input || tr.gotPath != input {
		t.Errorf("stages got %q / %q, want the input wav unwindowed", d.gotPath, tr.gotPath)
	}
	if d.gotDev != device.CPU {
		t.Errorf("diarizer device = %s, want cpu", d.gotDev)
	}
}

func TestRun_DegradedDiarizationStillSucceeds(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "meeting.wav")
	output := filepath.Join(dir, "out.txt")
	writeTestWAV(t, input, 8)

	d := &fakeDiarizer{outcome: diarize.Outcome{Degraded: true, Reason: "no token"}}
	_, tr := twoSpeakerFixture()
	p := &Pipeline{Config: cpuConfig(), Diarizer: d, Transcriber: tr, Host: device.LocalHost{}}

	err := p.Run(context.Background(), Options{
		InputPath:        input,
		OutputPath:       output,
		MergeSameSpeaker: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := os.ReadFile(output)
	want := "Speaker 1: hi there bye"
	if string(got) != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}
}

func TestRun_TranscriptionFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "meeting.wav")
	output := filepath.Join(dir, "out.txt")
	writeTestWAV(t, input, 8)

	d, _ := twoSpeakerFixture()
	tr := &fakeTranscriber{err: errors.New("model exploded")}
	p := &Pipeline{Config: cpuConfig(), Diarizer: d, Transcriber: tr, Host: device.LocalHost{}}

	err := p.Run(context.Background(), Options{InputPath: input, OutputPath: output})
	if err == nil {
		t.Fatal("Run succeeded despite transcription failure")
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Error("output file written on a failed run")
	}
}

func TestRun_DiarizationCancellationPropagates(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "meeting.wav")
	writeTestWAV(t, input, 8)

	d := &fakeDiarizer{err: context.Canceled}
	_, tr := twoSpeakerFixture()
	p := &Pipeline{Config: cpuConfig(), Diarizer: d, Transcriber: tr, Host: device.LocalHost{}}

	err := p.Run(context.Background(), Options{InputPath: input})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRun_BoundedWindowPerStage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "meeting.wav")
	output := filepath.Join(dir, "out.txt")
	writeTestWAV(t, input, 3)

	cfg := cpuConfig()
	cfg.MaxSeconds = 1

	d, tr := twoSpeakerFixture()
	p := &Pipeline{Config: cfg, Diarizer: d, Transcriber: tr, Host: device.LocalHost{}}

	if err := p.Run(context.Background(), Options{InputPath: input, OutputPath: output, MergeSameSpeaker: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if d.gotPath == input || tr.gotPath == input {
		t.Error("bounded run fed a stage the unwindowed input")
	}
	if d.gotPath == tr.gotPath {
		t.Error("stages shared one windowed artifact")
	}
	for _, path := range []string{d.gotPath, tr.gotPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("windowed artifact %s survived the run", path)
		}
	}
}

func TestRun_DefaultOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "standup.wav")
	writeTestWAV(t, input, 2)

	d, tr := twoSpeakerFixture()
	p := &Pipeline{Config: cpuConfig(), Diarizer: d, Transcriber: tr, Host: device.LocalHost{}}

	if err := p.Run(context.Background(), Options{InputPath: input, MergeSameSpeaker: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := filepath.Join(dir, "standup_transcript.txt")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("default output %s not written: %v", want, err)
	}
}

func TestRun_TimestampedMode(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "meeting.wav")
	output := filepath.Join(dir, "out.txt")
	writeTestWAV(t, input, 8)

	d, tr := twoSpeakerFixture()
	p := &Pipeline{Config: cpuConfig(), Diarizer: d, Transcriber: tr, Host: device.LocalHost{}}

	err := p.Run(context.Background(), Options{
		InputPath:        input,
		OutputPath:       output,
		Timestamps:       true,
		MergeSameSpeaker: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := os.ReadFile(output)
	want := "[00:00 - 00:02] Speaker 1: hi\n[00:02 - 00:04] Speaker 1: there\n[00:06 - 00:08] Speaker 2: bye"
	if string(got) != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}
}
