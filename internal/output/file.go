// Package output wraps the client's target file: an append-only stream
// opened with exclusive-create semantics so a completed transfer can never
// silently overwrite, or be silently resumed into, a prior run's output.
package output

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// File is the append-only output stream. Writes are sequential and in file
// order; Written reports the running total of bytes appended.
type File struct {
	handle  afero.File
	written uint64
}

// Create opens path for exclusive-create, append-only writing on fs. It
// fails if path already exists, preserving the no-double-write property
// across accidental re-runs (§9 Open Question: output-file open policy).
func Create(fs afero.Fs, path string) (*File, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("output: stat %s: %w", path, err)
	}
	if exists {
		return nil, fmt.Errorf("output: %s already exists", path)
	}

	handle, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("output: create %s: %w", path, err)
	}

	return &File{handle: handle}, nil
}

// Append writes data to the end of the file. A short write or any I/O
// error is fatal: there is no recovery path for a corrupted output stream.
func (f *File) Append(data []byte) error {
	n, err := f.handle.Write(data)
	if err != nil {
		return fmt.Errorf("output: write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("output: short write of %d, want %d bytes", n, len(data))
	}
	f.written += uint64(n)
	return nil
}

// Written returns the total number of bytes appended so far.
func (f *File) Written() uint64 {
	return f.written
}

// Close releases the underlying file handle.
func (f *File) Close() error {
	return f.handle.Close()
}
