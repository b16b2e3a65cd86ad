// Package device picks a compute device for each inference backend.
//
// The two backends carry different capability matrices: pyannote
// diarization can run on Apple's MPS, faster-whisper (ctranslate2)
// cannot. Explicit requests that cannot be honored are downgraded to
// CPU and surfaced as a fallback so the caller can warn; "auto"
// resolution is never a fallback, whatever it lands on.
package device

import (
	"os/exec"
	"runtime"
)

// Kind is a compute device selection.
type Kind string

const (
	Auto Kind = "auto"
	CPU  Kind = "cpu"
	CUDA Kind = "cuda"
	MPS  Kind = "mps"
)

// Valid reports whether k names a recognized device selection.
func (k Kind) Valid() bool {
	switch k {
	case Auto, CPU, CUDA, MPS:
		return true
	}
	return false
}

// Backend identifies which inference backend a resolution is for.
type Backend int

const (
	// BackendTranscription is faster-whisper: cuda or cpu only.
	BackendTranscription Backend = iota
	// BackendDiarization is pyannote: cuda, mps, or cpu.
	BackendDiarization
)

func (b Backend) String() string {
	if b == BackendDiarization {
		return "diarization"
	}
	return "transcription"
}

// supportsMPS reports whether the backend accepts the MPS device at all.
func (b Backend) supportsMPS() bool {
	return b == BackendDiarization
}

// HostProbe reports which accelerators the host actually has.
type HostProbe interface {
	CUDAAvailable() bool
	MPSAvailable() bool
}

// Resolution is the outcome of a device request.
type Resolution struct {
	Device Kind
	// Fallback is set when an explicit request could not be honored and
	// was downgraded to CPU. Callers must surface it; it is never set
	// for Auto requests or for an explicit CPU request.
	Fallback bool
	// Reason explains the fallback in user terms.
	Reason string
}

// Resolve maps a requested device to a usable one for the given
// backend.
func Resolve(requested Kind, backend Backend, host HostProbe) Resolution {
	switch requested {
	case Auto:
		if host.CUDAAvailable() {
			return Resolution{Device: CUDA}
		}
		if backend.supportsMPS() && host.MPSAvailable() {
			return Resolution{Device: MPS}
		}
		return Resolution{Device: CPU}

	case CPU:
		return Resolution{Device: CPU}

	case CUDA:
		if !host.CUDAAvailable() {
			return Resolution{
				Device:   CPU,
				Fallback: true,
				Reason:   "CUDA not available on this host",
			}
		}
		return Resolution{Device: CUDA}

	case MPS:
		if !backend.supportsMPS() {
			return Resolution{
				Device:   CPU,
				Fallback: true,
				Reason:   "MPS not supported by the " + backend.String() + " backend",
			}
		}
		if !host.MPSAvailable() {
			return Resolution{
				Device:   CPU,
				Fallback: true,
				Reason:   "MPS not available on this host",
			}
		}
		return Resolution{Device: MPS}
	}

	return Resolution{
		Device:   CPU,
		Fallback: true,
		Reason:   "unrecognized device " + string(requested),
	}
}

// LocalHost probes the machine the process runs on.
type LocalHost struct{}

// CUDAAvailable checks for the NVIDIA driver CLI on the PATH.
func (LocalHost) CUDAAvailable() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// MPSAvailable reports Apple Silicon.
func (LocalHost) MPSAvailable() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}
