// Package fs exposes the read-only file access used by the program loader.
// Paths have the form "<drive>:/<path>" where drive is a single decimal
// digit; every drive is served by its own Drive implementation.
package fs

import (
	"io"
	"strings"

	"github.com/ceyert/kuzne/kernel"
)

// Mode selects how a file is opened.
type Mode uint8

// The supported open modes.
const (
	ModeRead Mode = iota
	ModeWrite
	ModeAppend
)

// StatFlag describes file attributes.
type StatFlag uint32

// StatReadOnly is set for files that cannot be written to.
const StatReadOnly StatFlag = 1 << 0

// Stat contains file metadata.
type Stat struct {
	Flags StatFlag
	Size  uint32
}

// File is an open file.
type File interface {
	io.ReadSeekCloser

	// Stat returns the file metadata.
	Stat() (Stat, *kernel.Error)
}

// Drive serves the files of a single drive. Paths passed to Drive.Open are
// relative to the drive root and use '/' as the separator.
type Drive interface {
	Open(path string, mode Mode) (File, *kernel.Error)
}

// FileSystem opens files using "<drive>:/<path>" names.
type FileSystem interface {
	Open(path string, mode Mode) (File, *kernel.Error)
}

var (
	errBadPath     = &kernel.Error{Module: "fs", Message: "malformed path", Code: kernel.CodeBadPath}
	errBadMode     = &kernel.Error{Module: "fs", Message: "unsupported file mode", Code: kernel.CodeInvalidArgument}
	errNoSuchDrive = &kernel.Error{Module: "fs", Message: "no drive mounted for path", Code: kernel.CodeIO}
	errNotFound    = &kernel.Error{Module: "fs", Message: "file not found", Code: kernel.CodeIO}
	errRead        = &kernel.Error{Module: "fs", Message: "read failed", Code: kernel.CodeIO}
)

// ParseMode converts an fopen-style mode string into a Mode.
func ParseMode(mode string) (Mode, *kernel.Error) {
	switch mode {
	case "r":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	case "a":
		return ModeAppend, nil
	default:
		return 0, errBadMode
	}
}

// SplitPath splits path into its drive number and the drive-relative path.
// Empty path components are dropped.
func SplitPath(path string) (int, string, *kernel.Error) {
	if len(path) < 3 || path[0] < '0' || path[0] > '9' || path[1:3] != ":/" {
		return 0, "", errBadPath
	}

	var parts []string
	for _, part := range strings.Split(path[3:], "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			return 0, "", errBadPath
		}
		parts = append(parts, part)
	}

	return int(path[0] - '0'), strings.Join(parts, "/"), nil
}

// Drives dispatches Open calls to the drive selected by the path prefix.
type Drives struct {
	drives [10]Drive
}

// Mount attaches d as drive number drive, replacing any previous drive.
func (fsys *Drives) Mount(drive int, d Drive) *kernel.Error {
	if drive < 0 || drive >= len(fsys.drives) {
		return errBadPath
	}

	fsys.drives[drive] = d
	return nil
}

// Open implements FileSystem.
func (fsys *Drives) Open(path string, mode Mode) (File, *kernel.Error) {
	drive, rel, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	if fsys.drives[drive] == nil {
		return nil, errNoSuchDrive
	}

	return fsys.drives[drive].Open(rel, mode)
}

// ReadAll reads the remainder of f into p, which must be large enough to
// hold it. It returns the number of bytes read.
func ReadAll(f File, p []byte) (int, *kernel.Error) {
	n, err := io.ReadFull(f, p)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return n, errRead
	}

	return n, nil
}
