package fs

import (
	"github.com/ceyert/kuzne/kernel"
)

// MemFS is a read-only Drive whose files live in memory.
type MemFS struct {
	files map[string][]byte
}

// NewMemFS returns an empty MemFS.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// Add stores data under the drive-relative path name.
func (m *MemFS) Add(name string, data []byte) {
	m.files[name] = data
}

// Open implements Drive.
func (m *MemFS) Open(path string, mode Mode) (File, *kernel.Error) {
	if mode != ModeRead {
		return nil, errBadMode
	}

	data, ok := m.files[path]
	if !ok {
		return nil, errNotFound
	}

	return newByteFile(data), nil
}
