// Package scratch owns every temporary audio artifact a run creates:
// converted waveforms and bounded windows. Files registered with a
// Tracker are removed when the run finishes, whether it succeeded or
// not; removal failures are logged and never escalate.
package scratch

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Tracker accumulates temporary file paths for end-of-run cleanup.
// It is not safe for concurrent use; the pipeline is sequential.
type Tracker struct {
	dir   string
	paths []string
}

// NewTracker returns a tracker minting paths under dir, or the system
// temp directory when dir is empty.
func NewTracker(dir string) *Tracker {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Tracker{dir: dir}
}

// Path mints a fresh unique path with the given extension and registers
// it for cleanup. The file itself is not created.
func (t *Tracker) Path(ext string) string {
	p := filepath.Join(t.dir, "gromit-"+uuid.NewString()+ext)
	t.paths = append(t.paths, p)
	return p
}

// Register adopts an externally created file for cleanup.
func (t *Tracker) Register(path string) {
	if path == "" {
		return
	}
	t.paths = append(t.paths, path)
}

// Close removes every registered file. Paths that were never created
// are skipped silently; failed removals are logged as warnings.
func (t *Tracker) Close() {
	for _, p := range t.paths {
		if err := os.Remove(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			slog.Warn("could not remove temporary file", "path", p, "err", err)
			continue
		}
		slog.Debug("removed temporary file", "path", p)
	}
	t.paths = nil
}
