// Package storage implements the concrete SegmentStorage collaborator
// (C1): memory-mapped, size-preallocated segment log and index files. The
// core (internal/segment) never touches a file descriptor directly;
// every read/write crosses this package's interfaces.
package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile is a fixed-capacity, size-preallocated memory-mapped file. The
// file is truncated to capacity up front so the mapping never needs to be
// resized; size tracks how much of that capacity holds valid data.
type mmapFile struct {
	file     *os.File
	data     []byte
	capacity int64
	size     int64
}

func openMmapFile(path string, capacity int64) (*mmapFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	existingSize := fi.Size()

	if fi.Size() < capacity {
		if err := f.Truncate(capacity); err != nil {
			f.Close()
			return nil, err
		}
	} else if fi.Size() > capacity {
		capacity = fi.Size()
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(capacity), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &mmapFile{file: f, data: data, capacity: capacity, size: existingSize}, nil
}

func (m *mmapFile) writeAt(pos int64, b []byte) error {
	if pos+int64(len(b)) > m.capacity {
		return ErrStorageFull
	}
	copy(m.data[pos:], b)
	return nil
}

func (m *mmapFile) readAt(pos, length int64) []byte {
	if pos < 0 || pos+length > m.size {
		return nil
	}
	out := make([]byte, length)
	copy(out, m.data[pos:pos+length])
	return out
}

func (m *mmapFile) close(truncateToSize bool) error {
	_ = unix.Msync(m.data, unix.MS_SYNC)
	unmapErr := unix.Munmap(m.data)
	if truncateToSize {
		_ = m.file.Truncate(m.size)
	}
	closeErr := m.file.Close()
	if unmapErr != nil {
		return unmapErr
	}
	return closeErr
}

func (m *mmapFile) delete() error {
	path := m.file.Name()
	_ = unix.Munmap(m.data)
	_ = m.file.Close()
	return os.Remove(path)
}
