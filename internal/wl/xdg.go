package wl

import "github.com/bnema/waygrad/internal/wire"

// xdg-shell: the stable protocol extension that turns plain surfaces
// into desktop windows. Bound through the registry like any core
// global, spoken over the same connection.

const wmBaseSupportedVersion = 2

const (
	opWmBaseDestroy       = 0
	opWmBaseGetXdgSurface = 2
	opWmBasePong          = 3

	evtWmBasePing = 0
)

// WmBase is the xdg_wm_base global. The compositor pings it to check
// the client is alive; an unanswered ping gets the client killed.
type WmBase struct {
	object
	version uint32

	// OnPing must answer with Pong(serial). When unset, the binding
	// answers on the caller's behalf.
	OnPing func(serial uint32)
}

// Version returns the bound protocol version.
func (w *WmBase) Version() uint32 { return w.version }

func (w *WmBase) dispatch(e *wire.Event) {
	if e.Opcode != evtWmBasePing {
		return
	}
	serial := e.Uint()
	if w.OnPing != nil {
		w.OnPing(serial)
		return
	}
	if err := w.Pong(serial); err != nil {
		w.ctx.err = err
	}
}

// Pong answers a ping.
func (w *WmBase) Pong(serial uint32) error {
	return w.ctx.write(w.request(opWmBasePong).PutUint(serial))
}

// GetXdgSurface assigns the xdg_surface role to a wl_surface. The
// caller must send the role-specific setup (get_toplevel, title, app
// id) and an initial commit without a buffer before attaching one.
func (w *WmBase) GetXdgSurface(s *Surface) (*XdgSurface, error) {
	xs := &XdgSurface{object: object{id: w.ctx.newID(), ctx: w.ctx}}
	w.ctx.add(xs)
	if err := w.ctx.write(w.request(opWmBaseGetXdgSurface).PutUint(xs.id).PutUint(s.ID())); err != nil {
		return nil, err
	}
	return xs, nil
}

// Destroy deletes the global handle. All xdg_surfaces created from it
// must be destroyed first.
func (w *WmBase) Destroy() error {
	err := w.ctx.write(w.request(opWmBaseDestroy))
	w.ctx.forget(w.id)
	return err
}

const (
	opXdgSurfaceDestroy      = 0
	opXdgSurfaceGetToplevel  = 1
	opXdgSurfaceAckConfigure = 4

	evtXdgSurfaceConfigure = 0
)

// XdgSurface is the desktop-window role of a wl_surface. The first
// commit after setup triggers a configure event; each configure must
// be acknowledged before the next commit that depends on it.
type XdgSurface struct {
	object

	OnConfigure func(serial uint32)
}

func (xs *XdgSurface) dispatch(e *wire.Event) {
	if e.Opcode == evtXdgSurfaceConfigure && xs.OnConfigure != nil {
		xs.OnConfigure(e.Uint())
	}
}

// GetToplevel makes the surface a regular top-level window.
func (xs *XdgSurface) GetToplevel() (*Toplevel, error) {
	t := &Toplevel{object: object{id: xs.ctx.newID(), ctx: xs.ctx}}
	xs.ctx.add(t)
	if err := xs.ctx.write(xs.request(opXdgSurfaceGetToplevel).PutUint(t.id)); err != nil {
		return nil, err
	}
	return t, nil
}

// AckConfigure acknowledges a configure event by serial.
func (xs *XdgSurface) AckConfigure(serial uint32) error {
	return xs.ctx.write(xs.request(opXdgSurfaceAckConfigure).PutUint(serial))
}

// Destroy deletes the xdg_surface. The toplevel must go first.
func (xs *XdgSurface) Destroy() error {
	err := xs.ctx.write(xs.request(opXdgSurfaceDestroy))
	xs.ctx.forget(xs.id)
	return err
}

const (
	opToplevelDestroy  = 0
	opToplevelSetTitle = 2
	opToplevelSetAppID = 3

	evtToplevelConfigure       = 0
	evtToplevelClose           = 1
	evtToplevelConfigureBounds = 2
	evtToplevelWmCapabilities  = 3
)

// Toplevel is a top-level window: it can be moved, resized, maximized
// and closed by the desktop environment.
type Toplevel struct {
	object

	// OnConfigure suggests a size; zero means "you pick". The states
	// array carries flags like maximized or activated.
	OnConfigure func(width, height int32, states []uint32)
	OnClose     func()
}

func (t *Toplevel) dispatch(e *wire.Event) {
	switch e.Opcode {
	case evtToplevelConfigure:
		if t.OnConfigure != nil {
			width := e.Int()
			height := e.Int()
			states := e.UintArray()
			t.OnConfigure(width, height, states)
		}
	case evtToplevelClose:
		if t.OnClose != nil {
			t.OnClose()
		}
	case evtToplevelConfigureBounds, evtToplevelWmCapabilities:
		// Sizing hints and optional wm features; irrelevant for a
		// fixed-size static window.
	}
}

// SetTitle sets the window title shown by the desktop environment.
func (t *Toplevel) SetTitle(title string) error {
	return t.ctx.write(t.request(opToplevelSetTitle).PutString(title))
}

// SetAppID sets the application identifier used to group windows.
func (t *Toplevel) SetAppID(appID string) error {
	return t.ctx.write(t.request(opToplevelSetAppID).PutString(appID))
}

// Destroy unmaps and deletes the window.
func (t *Toplevel) Destroy() error {
	err := t.ctx.write(t.request(opToplevelDestroy))
	t.ctx.forget(t.id)
	return err
}
