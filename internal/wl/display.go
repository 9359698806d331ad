package wl

import "github.com/bnema/waygrad/internal/wire"

const (
	opDisplaySync        = 0
	opDisplayGetRegistry = 1

	evtDisplayError    = 0
	evtDisplayDeleteID = 1
)

// Display is the core global object, id 1 on every connection. All
// other objects descend from it.
type Display struct {
	object
}

// Sync asks the server to emit done on the returned callback once all
// requests sent so far have been processed. Used as a barrier.
func (d *Display) Sync() (*Callback, error) {
	cb := &Callback{object: object{id: d.ctx.newID(), ctx: d.ctx}}
	d.ctx.add(cb)
	if err := d.ctx.write(d.request(opDisplaySync).PutUint(cb.id)); err != nil {
		return nil, err
	}
	return cb, nil
}

// GetRegistry creates the registry object through which globals are
// listed and bound.
func (d *Display) GetRegistry() (*Registry, error) {
	r := &Registry{object: object{id: d.ctx.newID(), ctx: d.ctx}}
	d.ctx.add(r)
	if err := d.ctx.write(d.request(opDisplayGetRegistry).PutUint(r.id)); err != nil {
		return nil, err
	}
	return r, nil
}

// Roundtrip blocks until the server has processed every request sent
// so far, dispatching all events that arrive in the meantime.
func (d *Display) Roundtrip() error {
	cb, err := d.Sync()
	if err != nil {
		return err
	}
	done := false
	cb.OnDone = func(uint32) { done = true }
	for !done {
		if err := d.ctx.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Display) dispatch(e *wire.Event) {
	switch e.Opcode {
	case evtDisplayError:
		objectID := e.Uint()
		code := e.Uint()
		message := e.String()
		d.ctx.err = &DisplayError{ObjectID: objectID, Code: code, Message: message}
	case evtDisplayDeleteID:
		d.ctx.release(e.Uint())
	}
}

const evtCallbackDone = 0

// Callback carries a single done event and is destroyed by the server
// immediately after firing.
type Callback struct {
	object
	OnDone func(data uint32)
}

func (cb *Callback) dispatch(e *wire.Event) {
	if e.Opcode != evtCallbackDone {
		return
	}
	data := e.Uint()
	// The server destroys the callback after done; drop it from the
	// table so a stray event cannot reach it again.
	cb.ctx.forget(cb.id)
	if cb.OnDone != nil {
		cb.OnDone(data)
	}
}
