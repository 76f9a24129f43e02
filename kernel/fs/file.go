package fs

import (
	"bytes"
	"io"

	"github.com/ceyert/kuzne/kernel"
)

var errClosed = &kernel.Error{Module: "fs", Message: "file already closed", Code: kernel.CodeIO}

// byteFile is a read-only File over an in-memory copy of the file contents.
type byteFile struct {
	r      *bytes.Reader
	size   int
	closed bool
}

func newByteFile(data []byte) *byteFile {
	return &byteFile{r: bytes.NewReader(data), size: len(data)}
}

func (f *byteFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, errClosed
	}
	return f.r.Read(p)
}

func (f *byteFile) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, errClosed
	}
	return f.r.Seek(offset, whence)
}

func (f *byteFile) Stat() (Stat, *kernel.Error) {
	if f.closed {
		return Stat{}, errClosed
	}
	return Stat{Flags: StatReadOnly, Size: uint32(f.size)}, nil
}

func (f *byteFile) Close() error {
	if f.closed {
		return errClosed
	}
	f.closed = true
	return nil
}

var _ io.ReadSeekCloser = (*byteFile)(nil)
