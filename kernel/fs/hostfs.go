package fs

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ceyert/kuzne/kernel"
	"github.com/fsnotify/fsnotify"
)

// HostFS is a read-only Drive backed by a directory of the host machine.
// File contents are cached after the first Open; Watch keeps the cache in
// sync with changes made to the directory.
type HostFS struct {
	root string

	mu    sync.Mutex
	cache map[string][]byte

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewHostFS serves the files below root.
func NewHostFS(root string) *HostFS {
	return &HostFS{root: root, cache: make(map[string][]byte)}
}

// Open implements Drive.
func (h *HostFS) Open(path string, mode Mode) (File, *kernel.Error) {
	if mode != ModeRead {
		return nil, errBadMode
	}

	h.mu.Lock()
	data, ok := h.cache[path]
	h.mu.Unlock()

	if !ok {
		var err error
		if data, err = os.ReadFile(filepath.Join(h.root, filepath.FromSlash(path))); err != nil {
			return nil, errNotFound
		}

		h.mu.Lock()
		h.cache[path] = data
		h.mu.Unlock()
	}

	return newByteFile(data), nil
}

// Cached returns true if the contents of path are currently cached.
func (h *HostFS) Cached(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.cache[path]
	return ok
}

// Watch starts evicting cached files whenever they change on the host. It
// only observes the root directory.
func (h *HostFS) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err = w.Add(h.root); err != nil {
		_ = w.Close()
		return err
	}

	h.watcher, h.done = w, make(chan struct{})
	go h.loop(w, h.done)
	return nil
}

func (h *HostFS) loop(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			rel, err := filepath.Rel(h.root, ev.Name)
			if err != nil {
				continue
			}

			h.mu.Lock()
			delete(h.cache, filepath.ToSlash(rel))
			h.mu.Unlock()
		case _, ok := <-w.Errors:
			// a dropped event leaves a stale cache entry at worst
			if !ok {
				return
			}
		}
	}
}

// Close stops watching the host directory.
func (h *HostFS) Close() error {
	if h.watcher == nil {
		return nil
	}

	err := h.watcher.Close()
	<-h.done
	h.watcher = nil
	return err
}
