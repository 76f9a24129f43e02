//go:build linux || darwin

package mem

import "golang.org/x/sys/unix"

// reserveFn is mocked by tests.
var reserveFn = mmapAnonymous

// mmapAnonymous backs the region with private anonymous pages so that large
// heaps are only committed as they get touched.
func mmapAnonymous(size int) ([]byte, func() error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}

	return data, func() error { return unix.Munmap(data) }, nil
}
