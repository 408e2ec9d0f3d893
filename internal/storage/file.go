package storage

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// File is a Device backed by a single regular file of exactly the
// region's size. It is the default backend on targets with a
// filesystem.
//
// With syncEach set, every write is followed by an fsync so the byte
// is durable before the call returns. Without it, flushing is left to
// the page cache; a power loss can then lose recent writes, which
// trades durability for flash endurance on SD-card targets.
type File struct {
	f        *os.File
	path     string
	capacity int
	syncEach bool
	readOnly bool

	mu      sync.Mutex
	faulted bool
}

var _ Device = (*File)(nil)

// OpenFile opens the region file at path, creating it zero-filled at
// the given capacity if it does not exist. The size of an existing
// file is authoritative; capacity is only consulted at creation.
func OpenFile(path string, capacity int, syncEach bool) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}

	size := info.Size()
	if size == 0 {
		if capacity <= 0 {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("storage: creating %s: capacity must be positive, got %d", path, capacity)
		}
		// Truncate extends the fresh file with zeros, which is exactly
		// the factory-fresh storage state.
		if err := f.Truncate(int64(capacity)); err != nil {
			f.Close()
			return nil, fmt.Errorf("storage: initialize %s: %w", path, err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("storage: initialize %s: %w", path, err)
		}
		size = int64(capacity)
	}

	return &File{f: f, path: path, capacity: int(size), syncEach: syncEach}, nil
}

// OpenFileReadOnly opens an existing region file for inspection. The
// file must exist; writes through the returned device are dropped.
func OpenFileReadOnly(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}

	return &File{f: f, path: path, capacity: int(info.Size()), readOnly: true}, nil
}

// ReadByte returns the byte at address, or 0 if address is out of
// range or the read fails.
func (s *File) ReadByte(address int) byte {
	if address < 0 || address >= s.capacity {
		return 0
	}
	var b [1]byte
	if _, err := s.f.ReadAt(b[:], int64(address)); err != nil {
		s.fault("read", address, err)
		return 0
	}
	return b[0]
}

// WriteByte stores b at address. Out-of-range writes are dropped, and
// write failures are logged once; the storage contract gives callers
// no failure signal.
func (s *File) WriteByte(address int, b byte) {
	if s.readOnly || address < 0 || address >= s.capacity {
		return
	}
	if _, err := s.f.WriteAt([]byte{b}, int64(address)); err != nil {
		s.fault("write", address, err)
		return
	}
	if s.syncEach {
		if err := s.f.Sync(); err != nil {
			s.fault("sync", address, err)
		}
	}
}

// Capacity returns the region size in bytes.
func (s *File) Capacity() int {
	return s.capacity
}

// Faulted reports whether any read or write has failed since open.
func (s *File) Faulted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faulted
}

// Close flushes and closes the region file.
func (s *File) Close() error {
	if !s.readOnly {
		if err := s.f.Sync(); err != nil {
			s.f.Close()
			return fmt.Errorf("storage: sync %s: %w", s.path, err)
		}
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", s.path, err)
	}
	return nil
}

func (s *File) fault(op string, address int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faulted {
		return
	}
	s.faulted = true
	log.Printf("storage: %s %s at %d: %v (suppressing further fault logs)", op, s.path, address, err)
}
