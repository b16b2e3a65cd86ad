// Package audio reads and windows canonical PCM WAV waveforms. The
// pipeline only ever feeds it files it produced itself via ffmpeg, so
// only plain RIFF/WAVE with a fmt and a data chunk is handled.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Info describes a PCM waveform.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Frames        int64
}

// Duration returns the waveform length in seconds.
func (i Info) Duration() float64 {
	if i.SampleRate == 0 {
		return 0
	}
	return float64(i.Frames) / float64(i.SampleRate)
}

// parsed carries the chunk layout needed to rewrite a truncated copy.
type parsed struct {
	info       Info
	fmtChunk   []byte // raw fmt chunk body
	dataOffset int64  // file offset of the data payload
	dataSize   int64
	blockAlign int
}

// Probe reads the WAV header of the file at path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	p, err := parse(f)
	if err != nil {
		return Info{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return p.info, nil
}

func parse(f *os.File) (*parsed, error) {
	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return nil, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}

	p := &parsed{}
	offset := int64(12)

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		offset += 8

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(f, body); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			p.fmtChunk = body
			p.info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			p.info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			p.blockAlign = int(binary.LittleEndian.Uint16(body[12:14]))
			p.info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			p.dataOffset = offset
			p.dataSize = size
			if _, err := f.Seek(size+size%2, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skip data chunk: %w", err)
			}
		default:
			// Chunks are word-aligned; odd sizes carry a pad byte.
			if _, err := f.Seek(size+size%2, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
		offset += size + size%2
	}

	if p.fmtChunk == nil {
		return nil, fmt.Errorf("missing fmt chunk")
	}
	if p.dataOffset == 0 {
		return nil, fmt.Errorf("missing data chunk")
	}
	if p.blockAlign > 0 {
		p.info.Frames = p.dataSize / int64(p.blockAlign)
	}
	return p, nil
}

// Window bounds the waveform at src to maxSeconds. When the waveform
// already fits it returns (src, false, nil) and writes nothing; the
// caller still owns whatever path comes back as a scoped resource.
// Otherwise it writes the first floor(maxSeconds * sample rate) frames
// to dst and returns (dst, true, nil).
func Window(src string, maxSeconds float64, dst string) (string, bool, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", false, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	p, err := parse(f)
	if err != nil {
		return "", false, fmt.Errorf("parse %s: %w", src, err)
	}

	if p.info.Duration() <= maxSeconds {
		return src, false, nil
	}

	maxFrames := int64(maxSeconds * float64(p.info.SampleRate))
	newSize := maxFrames * int64(p.blockAlign)

	if _, err := f.Seek(p.dataOffset, io.SeekStart); err != nil {
		return "", false, fmt.Errorf("seek data chunk: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", false, fmt.Errorf("create window file: %w", err)
	}

	if err := writeWAV(out, p.fmtChunk, f, newSize); err != nil {
		out.Close()
		os.Remove(dst)
		return "", false, fmt.Errorf("write window file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", false, fmt.Errorf("close window file: %w", err)
	}
	return dst, true, nil
}

// writeWAV emits a canonical RIFF/WAVE with the given fmt chunk body
// and dataSize bytes of payload taken from r.
func writeWAV(w io.Writer, fmtChunk []byte, r io.Reader, dataSize int64) error {
	riffSize := 4 + (8 + int64(len(fmtChunk))) + (8 + dataSize)

	var hdr [12]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(riffSize))
	copy(hdr[8:12], "WAVE")
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	var chunk [8]byte
	copy(chunk[0:4], "fmt ")
	binary.LittleEndian.PutUint32(chunk[4:8], uint32(len(fmtChunk)))
	if _, err := w.Write(chunk[:]); err != nil {
		return err
	}
	if _, err := w.Write(fmtChunk); err != nil {
		return err
	}

	copy(chunk[0:4], "data")
	binary.LittleEndian.PutUint32(chunk[4:8], uint32(dataSize))
	if _, err := w.Write(chunk[:]); err != nil {
		return err
	}
	if _, err := io.CopyN(w, r, dataSize); err != nil {
		return err
	}
	return nil
}

// IsWAV sniffs the file magic; conversion is skipped for files that are
// already RIFF/WAVE.
func IsWAV(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	var magic [12]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return false
	}
	return string(magic[0:4]) == "RIFF" && string(magic[8:12]) == "WAVE"
}
