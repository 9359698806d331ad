package wl

import (
	"os"

	"github.com/bnema/waygrad/internal/wire"
)

const shmSupportedVersion = 1

const (
	opShmCreatePool = 0

	evtShmFormat = 0
)

// Pixel formats advertised by wl_shm. ARGB8888 and XRGB8888 are
// mandatory; everything else matches the drm fourcc codes.
const (
	FormatARGB8888 uint32 = 0
	FormatXRGB8888 uint32 = 1
)

// Shm is the shared-memory global. Clients hand it a file descriptor
// and carve wl_buffers out of the resulting pool.
type Shm struct {
	object
	version uint32

	// OnFormat reports one supported pixel format per event.
	OnFormat func(format uint32)
}

// Version returns the bound protocol version.
func (s *Shm) Version() uint32 { return s.version }

func (s *Shm) dispatch(e *wire.Event) {
	if e.Opcode == evtShmFormat && s.OnFormat != nil {
		s.OnFormat(e.Uint())
	}
}

// CreatePool shares the memory behind f with the compositor. The
// descriptor is duplicated by the kernel during transfer, so the
// caller keeps ownership of f.
func (s *Shm) CreatePool(f *os.File, size int32) (*ShmPool, error) {
	p := &ShmPool{object: object{id: s.ctx.newID(), ctx: s.ctx}}
	s.ctx.add(p)
	req := s.request(opShmCreatePool).
		PutUint(p.id).
		PutFd(int(f.Fd())).
		PutInt(size)
	if err := s.ctx.write(req); err != nil {
		return nil, err
	}
	return p, nil
}

const (
	opShmPoolCreateBuffer = 0
	opShmPoolDestroy      = 1
)

// ShmPool is a piece of memory shared with the compositor, from which
// buffers are allocated.
type ShmPool struct {
	object
}

func (p *ShmPool) dispatch(*wire.Event) {}

// CreateBuffer creates a buffer viewing the pool at the given offset
// and geometry. Stride is the byte distance between rows.
func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) (*Buffer, error) {
	b := &Buffer{object: object{id: p.ctx.newID(), ctx: p.ctx}}
	p.ctx.add(b)
	req := p.request(opShmPoolCreateBuffer).
		PutUint(b.id).
		PutInt(offset).
		PutInt(width).
		PutInt(height).
		PutInt(stride).
		PutUint(format)
	if err := p.ctx.write(req); err != nil {
		return nil, err
	}
	return b, nil
}

// Destroy deletes the pool. Buffers created from it stay valid.
func (p *ShmPool) Destroy() error {
	err := p.ctx.write(p.request(opShmPoolDestroy))
	p.ctx.forget(p.id)
	return err
}

const (
	opBufferDestroy = 0

	evtBufferRelease = 0
)

// Buffer provides content for a surface.
type Buffer struct {
	object

	// OnRelease fires when the compositor is done reading the buffer
	// and the client may reuse the memory.
	OnRelease func()
}

func (b *Buffer) dispatch(e *wire.Event) {
	if e.Opcode == evtBufferRelease && b.OnRelease != nil {
		b.OnRelease()
	}
}

// Destroy deletes the buffer.
func (b *Buffer) Destroy() error {
	err := b.ctx.write(b.request(opBufferDestroy))
	b.ctx.forget(b.id)
	return err
}
