package wl

import "github.com/bnema/waygrad/internal/wire"

const seatSupportedVersion = 5

const (
	opSeatGetKeyboard = 1
	opSeatRelease     = 3

	evtSeatCapabilities = 0
	evtSeatName         = 1
)

// Seat capability bits.
const (
	SeatPointer  uint32 = 1 << 0
	SeatKeyboard uint32 = 1 << 1
	SeatTouch    uint32 = 1 << 2
)

// Seat is a group of input devices. The demo only cares whether a
// keyboard is present, to offer the Esc shortcut.
type Seat struct {
	object
	version uint32

	OnCapabilities func(caps uint32)
	OnName         func(name string)
}

// Version returns the bound protocol version.
func (s *Seat) Version() uint32 { return s.version }

func (s *Seat) dispatch(e *wire.Event) {
	switch e.Opcode {
	case evtSeatCapabilities:
		if s.OnCapabilities != nil {
			s.OnCapabilities(e.Uint())
		}
	case evtSeatName:
		if s.OnName != nil {
			s.OnName(e.String())
		}
	}
}

// GetKeyboard returns the keyboard object for this seat. Only valid
// while the capabilities event reports a keyboard.
func (s *Seat) GetKeyboard() (*Keyboard, error) {
	k := &Keyboard{object: object{id: s.ctx.newID(), ctx: s.ctx}, seatVersion: s.version}
	s.ctx.add(k)
	if err := s.ctx.write(s.request(opSeatGetKeyboard).PutUint(k.id)); err != nil {
		return nil, err
	}
	return k, nil
}

// Release destroys the seat handle (protocol version 5 and up).
func (s *Seat) Release() error {
	if s.version < 5 {
		s.ctx.forget(s.id)
		return nil
	}
	err := s.ctx.write(s.request(opSeatRelease))
	s.ctx.forget(s.id)
	return err
}
