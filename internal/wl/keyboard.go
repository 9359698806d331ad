package wl

import (
	"os"

	"github.com/bnema/waygrad/internal/wire"
)

const (
	opKeyboardRelease = 0

	evtKeyboardKeymap     = 0
	evtKeyboardEnter      = 1
	evtKeyboardLeave      = 2
	evtKeyboardKey        = 3
	evtKeyboardModifiers  = 4
	evtKeyboardRepeatInfo = 5
)

// Key states for the key event.
const (
	KeyStateReleased uint32 = 0
	KeyStatePressed  uint32 = 1
)

// Keymap formats.
const (
	KeymapFormatNone  uint32 = 0
	KeymapFormatXKBv1 uint32 = 1
)

// Keyboard delivers key events for a seat. Key codes are Linux evdev
// codes; interpreting them properly needs the xkb keymap the
// compositor shares, which this demo deliberately does not parse.
type Keyboard struct {
	object
	seatVersion uint32

	// OnKeymap receives the memory-mapped keymap descriptor. The
	// callback owns the file and must close it.
	OnKeymap func(format uint32, f *os.File, size uint32)
	OnKey    func(serial, time, key, state uint32)
}

func (k *Keyboard) dispatch(e *wire.Event) {
	switch e.Opcode {
	case evtKeyboardKeymap:
		format := e.Uint()
		f := k.ctx.conn.TakeFile()
		size := e.Uint()
		if k.OnKeymap != nil {
			k.OnKeymap(format, f, size)
		} else if f != nil {
			f.Close()
		}
	case evtKeyboardKey:
		if k.OnKey != nil {
			serial := e.Uint()
			time := e.Uint()
			key := e.Uint()
			state := e.Uint()
			k.OnKey(serial, time, key, state)
		}
	case evtKeyboardEnter, evtKeyboardLeave, evtKeyboardModifiers, evtKeyboardRepeatInfo:
		// Focus and modifier bookkeeping is beyond a static window.
	}
}

// Release destroys the keyboard handle (seat version 3 and up).
func (k *Keyboard) Release() error {
	if k.seatVersion < 3 {
		k.ctx.forget(k.id)
		return nil
	}
	err := k.ctx.write(k.request(opKeyboardRelease))
	k.ctx.forget(k.id)
	return err
}
