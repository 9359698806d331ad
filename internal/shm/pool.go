// Package shm allocates the anonymous shared memory backing wl_shm
// pools: a memfd (with a tmpfile fallback) truncated to size and
// mapped into the process.
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Pool is a block of memory shared with the compositor. Data is the
// live mapping; File is the descriptor handed to wl_shm.create_pool.
type Pool struct {
	f    *os.File
	data []byte
	size int
}

// Create allocates a pool of the given size.
func Create(size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid pool size %d", size)
	}
	f, err := memfd(size)
	if err != nil {
		f, err = tmpfile(size)
		if err != nil {
			return nil, err
		}
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return &Pool{f: f, data: data, size: size}, nil
}

func memfd(size int) (*os.File, error) {
	fd, err := unix.MemfdCreate("waygrad-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate memfd to %d: %w", size, err)
	}
	// Sealing shrink protects the compositor from SIGBUS if we
	// misbehave; compositors increasingly require it.
	_, _ = unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK)
	return os.NewFile(uintptr(fd), "waygrad-shm"), nil
}

func tmpfile(size int) (*os.File, error) {
	f, err := os.CreateTemp("", "waygrad-shm-*")
	if err != nil {
		return nil, fmt.Errorf("create shm tmpfile: %w", err)
	}
	// Unlink immediately; the descriptor keeps the inode alive.
	os.Remove(f.Name())
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate shm tmpfile to %d: %w", size, err)
	}
	return f, nil
}

// Bytes returns the live mapping.
func (p *Pool) Bytes() []byte { return p.data }

// Size returns the pool size in bytes.
func (p *Pool) Size() int { return p.size }

// File returns the descriptor to share with the compositor. The pool
// retains ownership.
func (p *Pool) File() *os.File { return p.f }

// Close unmaps and closes the pool. The compositor's own mapping
// survives until it releases the pool object.
func (p *Pool) Close() error {
	var first error
	if p.data != nil {
		first = unix.Munmap(p.data)
		p.data = nil
	}
	if err := p.f.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
