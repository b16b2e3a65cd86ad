package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTracker_PathUniqueAndScoped(t *testing.T) {
	dir := t.TempDir()
	tr := NewTracker(dir)

	a := tr.Path(".wav")
	b := tr.Path(".wav")
	if a == b {
		t.Errorf("Path returned duplicate %q", a)
	}
	if filepath.Dir(a) != dir {
		t.Errorf("path %q not under %q", a, dir)
	}
	if !strings.HasSuffix(a, ".wav") {
		t.Errorf("path %q missing extension", a)
	}
}

func TestTracker_CloseRemovesCreatedFiles(t *testing.T) {
	tr := NewTracker(t.TempDir())

	p := tr.Path(".wav")
	if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	adopted := filepath.Join(t.TempDir(), "adopted.wav")
	if err := os.WriteFile(adopted, []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	tr.Register(adopted)

	tr.Close()

	for _, path := range []string{p, adopted} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still exists after Close", path)
		}
	}
}

func TestTracker_CloseToleratesMissingFiles(t *testing.T) {
	tr := NewTracker(t.TempDir())
	tr.Path(".wav") // minted, never created
	tr.Close()      // must not panic or log an error
}

func TestTracker_CloseIdempotent(t *testing.T) {
	tr := NewTracker(t.TempDir())
	p := tr.Path(".wav")
	if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	tr.Close()
	tr.Close()
}

func TestTracker_RegisterEmptyIgnored(t *testing.T) {
	tr := NewTracker(t.TempDir())
	tr.Register("")
	tr.Close()
}
