package wl

import "github.com/bnema/waygrad/internal/wire"

const (
	opSurfaceDestroy      = 0
	opSurfaceAttach       = 1
	opSurfaceDamage       = 2
	opSurfaceFrame        = 3
	opSurfaceCommit       = 6
	opSurfaceDamageBuffer = 9

	evtSurfaceEnter = 0
	evtSurfaceLeave = 1
)

// Surface is a rectangular area that can display a buffer and receive
// input. State set by attach and damage is double-buffered and takes
// effect on commit.
type Surface struct {
	object
}

// Attach sets the pending buffer. A nil buffer removes the content.
func (s *Surface) Attach(b *Buffer, x, y int32) error {
	var id uint32
	if b != nil {
		id = b.id
	}
	return s.ctx.write(s.request(opSurfaceAttach).PutUint(id).PutInt(x).PutInt(y))
}

// Damage marks a region (in surface coordinates) as needing repaint.
func (s *Surface) Damage(x, y, width, height int32) error {
	return s.ctx.write(s.request(opSurfaceDamage).PutInt(x).PutInt(y).PutInt(width).PutInt(height))
}

// Frame requests a callback for when a good time to draw the next
// frame arrives. The demo paints once and never asks, but the request
// is part of the surface's drawing contract.
func (s *Surface) Frame() (*Callback, error) {
	cb := &Callback{object: object{id: s.ctx.newID(), ctx: s.ctx}}
	s.ctx.add(cb)
	if err := s.ctx.write(s.request(opSurfaceFrame).PutUint(cb.id)); err != nil {
		return nil, err
	}
	return cb, nil
}

// Commit atomically applies the pending state.
func (s *Surface) Commit() error {
	return s.ctx.write(s.request(opSurfaceCommit))
}

// Destroy deletes the surface.
func (s *Surface) Destroy() error {
	err := s.ctx.write(s.request(opSurfaceDestroy))
	s.ctx.forget(s.id)
	return err
}

func (s *Surface) dispatch(e *wire.Event) {
	// enter/leave only report which output shows the surface; nothing
	// to do for a single static window.
}
