package inspect

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sync/atomic"

	"github.com/five82/glint/internal/search"
)

// pipeline wires one window of the search file through a scanner into a
// line transform.
type pipeline struct {
	pattern   search.Pattern
	scanner   search.Scanner
	file      *os.File
	reader    io.Reader
	transform *search.LineTransform
	sink      *nullSink
}

// buildPipeline validates the window and opens the search file. Nothing is
// opened when the window is empty or inverted.
func buildPipeline(path string, from, to, base uint64, p search.Pattern, scanner search.Scanner) (*pipeline, error) {
	if from >= to || to > math.MaxInt64 {
		return nil, &RangeError{From: from, To: to}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, search.WrapStage(search.OpReader, fmt.Errorf("open search file: %w", err))
	}
	section := io.NewSectionReader(file, int64(from), int64(to-from))
	return &pipeline{
		pattern:   p,
		scanner:   scanner,
		file:      file,
		reader:    stageReader{r: section},
		transform: search.NewLineTransform(base),
		sink:      &nullSink{},
	}, nil
}

// run blocks until the scanner has drained the window.
func (p *pipeline) run(ctx context.Context) error {
	out := io.MultiWriter(p.transform, p.sink)
	return p.scanner.Scan(ctx, p.reader, p.pattern, out)
}

func (p *pipeline) lines() []uint64 {
	return p.transform.Lines()
}

// close stops the transform and releases the file. Safe to call repeatedly.
func (p *pipeline) close() {
	p.transform.Stop()
	_ = p.file.Close()
}

// stageReader tags read failures so they surface as reader errors rather
// than being attributed to the scanner's stdin.
type stageReader struct {
	r io.Reader
}

func (s stageReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		return n, search.WrapStage(search.OpReader, err)
	}
	return n, err
}

// nullSink discards scanner output after the transform has seen it.
type nullSink struct {
	n atomic.Int64
}

func (s *nullSink) Write(p []byte) (int, error) {
	s.n.Add(int64(len(p)))
	return len(p), nil
}

func (s *nullSink) bytes() int64 {
	return s.n.Load()
}
