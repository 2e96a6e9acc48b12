// Package logtail reads line-oriented views of an append-only log file.
//
// # Overview
//
// Two helpers live here:
//
//  1. Tail: the last N lines of a file, for the preview pane
//  2. RowIndex: byte offset to row number translation, for the inspector
//
// # Reading the Tail
//
// Tail reads the file backwards in 64KB blocks until it has seen enough
// newlines, so a preview of a multi-gigabyte log costs one or two reads:
//
//	lines, err := logtail.Tail("/var/log/app.log", 40)
//	if err != nil {
//		log.Printf("failed to read log: %v", err)
//	}
//
// A missing file returns nil, nil. Carriage returns before the newline are
// dropped.
//
// # Row Index
//
// The search process reports line numbers relative to the byte window it was
// given. RowIndex converts the window start into the absolute row so reported
// numbers can be shifted:
//
//	ix := logtail.NewRowIndex(path)
//	base, err := ix.RowsBefore(readFrom)
//
// Every answer becomes a checkpoint. The inspector advances its window
// monotonically, so each query only counts the bytes appended since the
// previous one. Offsets below the newest checkpoint count forward from the
// nearest checkpoint beneath them.
//
// The index assumes the file only grows. Call Reset after truncation.
//
// # Error Handling
//
// RowsBefore fails when the file is missing or shorter than the requested
// offset (io.ErrUnexpectedEOF). Failed queries leave no checkpoint behind.
package logtail
