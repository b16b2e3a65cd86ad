// Package ffmpeg shells out to ffmpeg/ffprobe for the codec work this
// pipeline does not do itself: probing container duration and decoding
// arbitrary inputs into the canonical mono 16 kHz PCM waveform.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// MediaInfo holds duration and codec information from ffprobe.
type MediaInfo struct {
	Duration float64
	Codec    string
}

// Available returns true if ffmpeg is on the PATH.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// probeOutput mirrors ffprobe JSON structure.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecName string `json:"codec_name"`
	} `json:"streams"`
}

// ProbeMedia uses ffprobe to get media duration and audio codec.
func ProbeMedia(ctx context.Context, path string) (*MediaInfo, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name:format=duration",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("ffprobe JSON parse error: %w", err)
	}

	dur, _ := strconv.ParseFloat(probe.Format.Duration, 64)

	codec := "N/A"
	if len(probe.Streams) > 0 && probe.Streams[0].CodecName != "" {
		codec = probe.Streams[0].CodecName
	}

	return &MediaInfo{Duration: dur, Codec: codec}, nil
}

// ConvertToWAV decodes any container ffmpeg understands into a mono
// 16 kHz PCM WAV at outputPath. Both inference backends consume this
// canonical form.
func ConvertToWAV(ctx context.Context, inputPath, outputPath string) error {
	slog.Info("converting to canonical waveform", "input", inputPath)

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-y", "-i", inputPath,
		"-vn",
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		outputPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg convert failed: %w\n%s", err, string(out))
	}
	return nil
}

// IsSupportedExtension returns true for the audio/video containers the
// transcribe command accepts.
func IsSupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp3", ".m4a", ".wav", ".flac", ".ogg", ".aac",
		".mp4", ".mov", ".mkv", ".avi", ".flv", ".webm":
		return true
	}
	return false
}

// LogMediaInfo logs file size and media information, returning the
// probe result when available.
func LogMediaInfo(ctx context.Context, path string) *MediaInfo {
	stat, err := os.Stat(path)
	if err != nil {
		slog.Warn("cannot stat file", "path", path, "err", err)
		return nil
	}

	sizeMB := float64(stat.Size()) / (1024 * 1024)
	msg := fmt.Sprintf("file size: %.2f MB", sizeMB)

	info, err := ProbeMedia(ctx, path)
	if err == nil && info != nil {
		minutes := int(info.Duration) / 60
		seconds := int(info.Duration) % 60
		msg += fmt.Sprintf(" | duration: %02d:%02d | codec: %s", minutes, seconds, info.Codec)
	}

	slog.Info(msg)
	return info
}
