// Package pyrun executes the embedded python inference helpers. Each
// helper prints a single JSON document on stdout and progress chatter
// on stderr; stderr is forwarded to the debug log, throttled so a
// model's per-segment output cannot flood it.
package pyrun

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// stderrTail limits how many trailing stderr lines a failure report carries.
const stderrTail = 8

// Runner invokes helper scripts with a configured interpreter.
type Runner struct {
	// Python is the interpreter to use; "python3" when empty.
	Python string
}

func (r Runner) interpreter() string {
	if r.Python != "" {
		return r.Python
	}
	return "python3"
}

// Run materializes script to a temporary file, executes it with the
// given arguments, and returns its stdout. Cancellation of ctx kills
// the helper. On a non-zero exit the error includes the tail of the
// helper's stderr.
func (r Runner) Run(ctx context.Context, script []byte, name string, args ...string) ([]byte, error) {
	scriptPath, err := writeScript(script, name)
	if err != nil {
		return nil, err
	}
	defer os.Remove(scriptPath)

	cmd := exec.CommandContext(ctx, r.interpreter(), append([]string{scriptPath}, args...)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s helper: %w", name, err)
	}

	var out bytes.Buffer
	var tail []string

	g := new(errgroup.Group)
	g.Go(func() error {
		_, err := io.Copy(&out, stdout)
		return err
	})
	g.Go(func() error {
		// Forward at most a line per second to the log, but keep the
		// tail intact for error reporting.
		throttle := rate.Sometimes{First: 3, Interval: time.Second}
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail = append(tail, line)
			if len(tail) > stderrTail {
				tail = tail[1:]
			}
			throttle.Do(func() {
				slog.Debug(name+" helper", "stderr", line)
			})
		}
		return nil
	})

	pumpErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		detail := strings.TrimSpace(strings.Join(tail, "\n"))
		if detail != "" {
			return nil, fmt.Errorf("%s helper failed: %w: %s", name, waitErr, detail)
		}
		return nil, fmt.Errorf("%s helper failed: %w", name, waitErr)
	}
	if pumpErr != nil {
		return nil, fmt.Errorf("read %s helper output: %w", name, pumpErr)
	}
	return out.Bytes(), nil
}

func writeScript(script []byte, name string) (string, error) {
	f, err := os.CreateTemp("", "gromit-"+name+"-*.py")
	if err != nil {
		return "", fmt.Errorf("create helper script: %w", err)
	}
	if _, err := f.Write(script); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close helper script: %w", err)
	}
	return f.Name(), nil
}
