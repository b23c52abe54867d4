// Package prompt asks the operator for a one-time code during login.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/huh"

	"github.com/ibeckermayer/rewards4me/internal/auth"
)

// ErrUsed is returned when a source is asked for a second line
var ErrUsed = errors.New("prompt: line already requested")

// New returns a single-use code source: a form when a human is at the
// terminal, a line from lines otherwise.
func New(lines *Lines, out io.Writer) auth.CodeSource {
	if ShouldPrompt() {
		return &Terminal{}
	}
	return NewReader(lines, out)
}

// Terminal reads the line through an interactive huh form
type Terminal struct {
	used atomic.Bool
}

func (t *Terminal) RequestLine(ctx context.Context, prompt string) (string, error) {
	if !t.used.CompareAndSwap(false, true) {
		return "", ErrUsed
	}

	var value string
	if err := codeForm(prompt, &value).RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return value, nil
}

// codeForm asks for one line and accepts it as typed, empty included
func codeForm(prompt string, value *string) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(prompt).
			Value(value),
	))
}

type line struct {
	text string
	err  error
}

// Lines hands out the lines of one input to any number of readers, in
// order. Create one per input stream.
type Lines struct {
	in    io.Reader
	once  sync.Once
	lines chan line
}

// NewLines wraps in. Nothing is read until the first line is requested.
func NewLines(in io.Reader) *Lines {
	return &Lines{in: in, lines: make(chan line)}
}

// read feeds lines until in ends; the final error is delivered once and
// the channel is closed after it
func (l *Lines) read() {
	r := bufio.NewReader(l.in)
	for {
		text, err := r.ReadString('\n')
		if err != nil {
			if text != "" && errors.Is(err, io.EOF) {
				l.lines <- line{text: text}
			} else {
				l.lines <- line{err: err}
			}
			close(l.lines)
			return
		}
		l.lines <- line{text: text}
	}
}

// Next blocks for the next line. A line is only consumed by a caller that
// receives it, so a cancelled wait leaves it for the next one.
func (l *Lines) Next(ctx context.Context) (string, error) {
	l.once.Do(func() { go l.read() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case next, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		if next.err != nil {
			return "", next.err
		}
		return strings.TrimRight(next.text, "\r\n"), nil
	}
}

// Reader prints the prompt to out and takes one line from a shared Lines
type Reader struct {
	lines *Lines
	out   io.Writer
	used  atomic.Bool
}

// NewReader creates a line reader
func NewReader(lines *Lines, out io.Writer) *Reader {
	return &Reader{lines: lines, out: out}
}

// RequestLine returns the line without its terminator
func (r *Reader) RequestLine(ctx context.Context, prompt string) (string, error) {
	if !r.used.CompareAndSwap(false, true) {
		return "", ErrUsed
	}

	if _, err := fmt.Fprint(r.out, prompt+" "); err != nil {
		return "", err
	}

	text, err := r.lines.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("read line: %w", err)
	}
	return text, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	ciEnvVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"BUILDKITE",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}

	return IsInteractive()
}
