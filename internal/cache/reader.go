package cache

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	// initialBufSize is the starting size of pooled scanner buffers.
	initialBufSize = 64 * 1024
	// MaxLineSize caps a single line; longer lines fail the read.
	MaxLineSize = 10 * 1024 * 1024
)

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, initialBufSize)
		return &b
	},
}

// GetScannerBuffer returns a pooled buffer for bufio.Scanner.
func GetScannerBuffer() []byte {
	return *(bufPool.Get().(*[]byte))
}

// PutScannerBuffer returns a buffer to the pool. Oversized buffers are dropped.
func PutScannerBuffer(buf []byte) {
	if cap(buf) > MaxLineSize {
		return
	}
	buf = buf[:cap(buf)]
	bufPool.Put(&buf)
}

// IncrementalReader yields complete lines from a file starting at a byte offset.
// A trailing line without a newline is not returned; Offset stays before it so
// the next reader picks it up once the writer finishes the line.
type IncrementalReader struct {
	file    *os.File
	scanner *bufio.Scanner
	buf     []byte
	offset  int64
}

// NewIncrementalReader opens path read-only and seeks to offset.
// The file is never locked, so concurrent writers are unaffected.
func NewIncrementalReader(path string, offset int64) (*IncrementalReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("seek %s to %d: %w", path, offset, err)
		}
	}

	r := &IncrementalReader{
		file:   f,
		buf:    GetScannerBuffer(),
		offset: offset,
	}
	r.scanner = bufio.NewScanner(f)
	r.scanner.Buffer(r.buf, MaxLineSize)
	r.scanner.Split(r.splitCompleteLines)
	return r, nil
}

// splitCompleteLines is bufio.ScanLines without the final unterminated token.
func (r *IncrementalReader) splitCompleteLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		r.offset += int64(i + 1)
		return i + 1, bytes.TrimSuffix(data[:i], []byte{'\r'}), nil
	}
	// Request more data, or stop at EOF leaving the partial line unread.
	return 0, nil, nil
}

// Next returns the next complete line, or io.EOF when none remain.
// The returned slice is only valid until the next call.
func (r *IncrementalReader) Next() ([]byte, error) {
	if r.scanner.Scan() {
		return r.scanner.Bytes(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Offset returns the byte position just past the last line returned by Next.
func (r *IncrementalReader) Offset() int64 {
	return r.offset
}

// Close releases the file handle and the pooled buffer.
func (r *IncrementalReader) Close() error {
	PutScannerBuffer(r.buf)
	r.buf = nil
	return r.file.Close()
}
