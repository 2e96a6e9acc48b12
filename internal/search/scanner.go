package search

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	regexp "github.com/wasilibs/go-re2"
	"golang.org/x/sync/errgroup"
)

// Scanner runs a line-oriented search over input and writes one report line
// per match ("N:" where N is the 1-based line number within input) to out.
// Returning means the scan is over and out will not be written again.
type Scanner interface {
	Scan(ctx context.Context, input io.Reader, p Pattern, out io.Writer) error
}

const (
	defaultRipgrepPath = "rg"
	defaultKillGrace   = 2 * time.Second
	stderrTailLimit    = 4 << 10
)

// Ripgrep delegates matching to an rg process reading from stdin.
type Ripgrep struct {
	Path      string        // binary; empty uses "rg" from PATH
	PCRE2     bool          // pass --pcre2
	Dir       string        // working directory of the process
	KillGrace time.Duration // how long Wait lingers on pipes after a kill
}

// Args builds the rg command line for p. Only line numbers are reported,
// one per match, so the content of the log never crosses the pipe twice.
func (r *Ripgrep) Args(p Pattern) []string {
	args := []string{
		"--no-config",
		"--line-number",
		"--only-matching",
		"--replace", "",
		"--text",
		"--no-filename",
		"--color", "never",
	}
	if r.PCRE2 {
		args = append(args, "--pcre2")
	}
	if p.CaseInsensitive {
		args = append(args, "--ignore-case")
	}
	return append(args, "-e", p.Source, "-")
}

// Scan spawns rg, pipes input into its stdin and drains stdout into out.
// Exit status 1 (nothing matched) is not an error.
func (r *Ripgrep) Scan(ctx context.Context, input io.Reader, p Pattern, out io.Writer) error {
	path := r.Path
	if path == "" {
		path = defaultRipgrepPath
	}
	cmd := exec.CommandContext(ctx, path, r.Args(p)...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = r.KillGrace
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultKillGrace
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return WrapStage(OpSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return WrapStage(OpSpawn, err)
	}
	stderr := &tailBuffer{limit: stderrTailLimit}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return WrapStage(OpSpawn, err)
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(stdin, input)
		if closeErr := stdin.Close(); err == nil {
			err = closeErr
		}
		if err != nil && !brokenPipe(err) {
			return WrapStage(OpStdin, err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := io.Copy(out, stdout); err != nil {
			return WrapStage(OpStdout, err)
		}
		return nil
	})
	pipeErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return WrapStage(OpWait, ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return &ProcessError{Op: OpWait, Err: err, Stderr: stderr.String()}
		}
	}
	return pipeErr
}

// RE2 matches in-process with the same report format as Ripgrep. Patterns are
// RE2 syntax; zero-width matches are not reported.
type RE2 struct{}

const ctxCheckEvery = 1024

// Scan implements Scanner.
func (RE2) Scan(ctx context.Context, input io.Reader, p Pattern, out io.Writer) error {
	re, err := regexp.Compile(p.expr())
	if err != nil {
		return WrapStage(OpCompile, err)
	}

	reader := bufio.NewReaderSize(input, 64*1024)
	writer := bufio.NewWriter(out)
	var line uint64
	for {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return WrapStage(OpWait, err)
			}
		}
		chunk, readErr := reader.ReadBytes('\n')
		if len(chunk) > 0 {
			line++
			text := bytes.TrimRight(chunk, "\r\n")
			for _, loc := range re.FindAllIndex(text, -1) {
				if loc[1] == loc[0] {
					continue
				}
				if err := writeLineNumber(writer, line); err != nil {
					return WrapStage(OpStdout, err)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return WrapStage(OpStdin, readErr)
		}
	}
	if err := writer.Flush(); err != nil {
		return WrapStage(OpStdout, err)
	}
	return nil
}

func writeLineNumber(w *bufio.Writer, n uint64) error {
	var buf [24]byte
	b := strconv.AppendUint(buf[:0], n, 10)
	b = append(b, ':', '\n')
	_, err := w.Write(b)
	return err
}

func brokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
