//go:build unix

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

type fileKey struct {
	dev, ino uint64
}

// identify returns a key that is the same for every path to one file
func identify(name string) (fileKey, bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(name, &st); err != nil {
		return fileKey{}, false, err
	}
	return fileKey{uint64(st.Dev), uint64(st.Ino)}, st.Mode&unix.S_IFMT == unix.S_IFREG, nil
}

// mapFile maps a file read-only, falling back on reading it for empty files
func mapFile(name string) ([]byte, func(), error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if stat.Size() == 0 {
		return readWholeFile(name)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return readWholeFile(name)
	}
	return data, func() { unix.Munmap(data) }, nil
}
