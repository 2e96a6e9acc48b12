package logtail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const tailBlockSize = 64 * 1024

// Tail returns at most maxLines from the end of the file at path. It reads
// backwards in blocks so cost is proportional to the lines returned, not the
// file size.
func Tail(path string, maxLines int) ([]string, error) {
	lines, _, err := TailAt(path, -1, maxLines)
	return lines, err
}

// TailAt is Tail over the first size bytes of the file, for callers that
// need the tail of one particular size of a growing file. A negative size
// uses the current size. It also returns the offset where the first line
// starts.
func TailAt(path string, size int64, maxLines int) ([]string, int64, error) {
	if maxLines <= 0 {
		return nil, 0, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	if size < 0 {
		info, err := file.Stat()
		if err != nil {
			return nil, 0, fmt.Errorf("stat log: %w", err)
		}
		size = info.Size()
	}

	end := size
	var data []byte
	// A trailing newline terminates the last line rather than starting an
	// empty one, so one extra separator is needed.
	for end > 0 && bytes.Count(data, []byte{'\n'}) <= maxLines {
		start := end - tailBlockSize
		if start < 0 {
			start = 0
		}
		block := make([]byte, end-start)
		n, err := file.ReadAt(block, start)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("read log: %w", err)
		}
		if int64(n) < end-start {
			return nil, 0, fmt.Errorf("read log: %w", io.ErrUnexpectedEOF)
		}
		data = append(block, data...)
		end = start
	}

	offset := end
	data = bytes.TrimSuffix(data, []byte{'\n'})
	if len(data) == 0 {
		return nil, offset, nil
	}
	parts := bytes.Split(data, []byte{'\n'})
	if drop := len(parts) - maxLines; drop > 0 {
		for _, p := range parts[:drop] {
			offset += int64(len(p)) + 1
		}
		parts = parts[drop:]
	}
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(bytes.TrimSuffix(p, []byte{'\r'}))
	}
	return lines, offset, nil
}
