// Package diskbuffer provides an append-only write/read buffer over a
// temp file, with a fixed in-memory buffer that spills to disk when it
// would overflow.
//
// Writes accumulate behind a mutex-guarded in-memory buffer and flush
// to the backing file once a threshold is reached, so a large input
// queue never has to live in memory all at once.
package diskbuffer

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// WriteError wraps a failure to flush the buffer to its backing file.
type WriteError struct {
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("diskbuffer: write %s: %v", e.Path, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }

// DiskBuffer is a fixed-capacity in-memory buffer backed by a temp
// file. Writes accumulate in memory; an append that would overflow
// the capacity flushes first. No record framing is imposed -- callers
// must write their own newlines.
type DiskBuffer struct {
	mu       sync.Mutex
	path     string
	capacity int
	buf      []byte
	file     *os.File
	total    int64
}

// New creates a DiskBuffer backed by a file at path, truncating it if
// it already exists. capacity is the in-memory buffer size in bytes
// before a flush is forced.
func New(path string, capacity int) (*DiskBuffer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, &WriteError{Path: path, Cause: err}
	}
	return &DiskBuffer{
		path:     path,
		capacity: capacity,
		buf:      make([]byte, 0, capacity),
		file:     f,
	}, nil
}

// Path returns the backing file's path.
func (d *DiskBuffer) Path() string {
	return d.path
}

// Write appends b to the buffer, flushing first if the append would
// overflow the fixed capacity.
func (d *DiskBuffer) Write(b []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.buf)+len(b) > d.capacity {
		if err := d.flushLocked(); err != nil {
			return err
		}
	}
	d.buf = append(d.buf, b...)
	d.total += int64(len(b))
	return nil
}

// WriteByte appends a single byte, flushing first if necessary.
func (d *DiskBuffer) WriteByte(b byte) error {
	return d.Write([]byte{b})
}

// Flush writes the buffer's contents to the backing file and resets
// the buffer. Flushing twice in a row with no intervening write is a
// no-op the second time, so the file's contents are unaffected
// (idempotent flushing).
func (d *DiskBuffer) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushLocked()
}

func (d *DiskBuffer) flushLocked() error {
	if len(d.buf) == 0 {
		return nil
	}
	if _, err := d.file.Write(d.buf); err != nil {
		return &WriteError{Path: d.path, Cause: err}
	}
	d.buf = d.buf[:0]
	return nil
}

// IsEmpty reports whether anything has ever been written to the
// buffer.
func (d *DiskBuffer) IsEmpty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total == 0
}

// Close flushes and closes the write handle. It does not delete the
// backing file; callers own that decision (see Delete).
func (d *DiskBuffer) Close() error {
	if err := d.Flush(); err != nil {
		return err
	}
	return d.file.Close()
}

// Delete removes the backing file. Callers should call this from a
// scoped cleanup path (e.g. a deferred guard) regardless of how the
// run exits.
func (d *DiskBuffer) Delete() error {
	return os.Remove(d.path)
}

// OpenReader opens an independent, seekable read handle on the
// backing file. Flush must be called before the contents are
// meaningful to a reader.
func (d *DiskBuffer) OpenReader() (io.ReadSeekCloser, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, &WriteError{Path: d.path, Cause: err}
	}
	return f, nil
}
