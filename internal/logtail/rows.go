package logtail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
)

const countBlockSize = 256 * 1024

type checkpoint struct {
	offset uint64
	rows   uint64
}

// RowIndex answers "how many lines start before byte offset N" for an
// append-only file. Answers are cached as checkpoints, so advancing through a
// growing file counts every byte once.
type RowIndex struct {
	path string

	mu          sync.Mutex
	checkpoints []checkpoint // sorted by offset, first is {0, 0}
}

// NewRowIndex returns an index over the file at path.
func NewRowIndex(path string) *RowIndex {
	return &RowIndex{path: path, checkpoints: []checkpoint{{}}}
}

// RowsBefore returns the number of newlines in [0, offset). For an offset at
// a line boundary that is the 0-based row starting there.
func (ix *RowIndex) RowsBefore(offset uint64) (uint64, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	i, found := slices.BinarySearchFunc(ix.checkpoints, offset, func(c checkpoint, off uint64) int {
		switch {
		case c.offset < off:
			return -1
		case c.offset > off:
			return 1
		}
		return 0
	})
	if found {
		return ix.checkpoints[i].rows, nil
	}
	from := ix.checkpoints[i-1]

	rows, err := countNewlines(ix.path, from.offset, offset)
	if err != nil {
		return 0, err
	}
	cp := checkpoint{offset: offset, rows: from.rows + rows}
	ix.checkpoints = slices.Insert(ix.checkpoints, i, cp)
	return cp.rows, nil
}

// Reset forgets every checkpoint, for when the file was truncated or
// replaced.
func (ix *RowIndex) Reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.checkpoints = []checkpoint{{}}
}

func countNewlines(path string, from, to uint64) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	want := int64(to - from)
	section := io.NewSectionReader(file, int64(from), want)
	buf := make([]byte, countBlockSize)
	var rows uint64
	var seen int64
	for {
		n, err := section.Read(buf)
		rows += uint64(bytes.Count(buf[:n], []byte{'\n'}))
		seen += int64(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read log: %w", err)
		}
	}
	if seen < want {
		return 0, fmt.Errorf("count rows to offset %d: %w", to, io.ErrUnexpectedEOF)
	}
	return rows, nil
}
