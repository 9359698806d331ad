package wl

import "github.com/bnema/waygrad/internal/wire"

const (
	opRegistryBind = 0

	evtRegistryGlobal       = 0
	evtRegistryGlobalRemove = 1
)

// Global describes one entry advertised by the registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry lists the server's global objects and binds them into
// client-side handles. The initial burst of global events ends at the
// first wl_display.sync roundtrip after creation.
type Registry struct {
	object

	OnGlobal       func(g Global)
	OnGlobalRemove func(name uint32)
}

func (r *Registry) dispatch(e *wire.Event) {
	switch e.Opcode {
	case evtRegistryGlobal:
		if r.OnGlobal != nil {
			name := e.Uint()
			iface := e.String()
			version := e.Uint()
			r.OnGlobal(Global{Name: name, Interface: iface, Version: version})
		}
	case evtRegistryGlobalRemove:
		if r.OnGlobalRemove != nil {
			r.OnGlobalRemove(e.Uint())
		}
	}
}

// bind sends the wire-level bind request. A new_id without a fixed
// interface is preceded by the interface name and version on the wire.
func (r *Registry) bind(g Global, version uint32, o Object) error {
	req := r.request(opRegistryBind).
		PutUint(g.Name).
		PutString(g.Interface).
		PutUint(version).
		PutUint(o.ID())
	return r.ctx.write(req)
}

func minVersion(g Global, supported uint32) uint32 {
	if g.Version < supported {
		return g.Version
	}
	return supported
}

// BindCompositor binds a wl_compositor global.
func (r *Registry) BindCompositor(g Global) (*Compositor, error) {
	c := &Compositor{object: object{id: r.ctx.newID(), ctx: r.ctx}}
	c.version = minVersion(g, compositorSupportedVersion)
	r.ctx.add(c)
	if err := r.bind(g, c.version, c); err != nil {
		return nil, err
	}
	return c, nil
}

// BindShm binds a wl_shm global. The server answers with one format
// event per supported pixel format.
func (r *Registry) BindShm(g Global) (*Shm, error) {
	s := &Shm{object: object{id: r.ctx.newID(), ctx: r.ctx}}
	s.version = minVersion(g, shmSupportedVersion)
	r.ctx.add(s)
	if err := r.bind(g, s.version, s); err != nil {
		return nil, err
	}
	return s, nil
}

// BindSeat binds a wl_seat global.
func (r *Registry) BindSeat(g Global) (*Seat, error) {
	s := &Seat{object: object{id: r.ctx.newID(), ctx: r.ctx}}
	s.version = minVersion(g, seatSupportedVersion)
	r.ctx.add(s)
	if err := r.bind(g, s.version, s); err != nil {
		return nil, err
	}
	return s, nil
}

// BindWmBase binds an xdg_wm_base global.
func (r *Registry) BindWmBase(g Global) (*WmBase, error) {
	w := &WmBase{object: object{id: r.ctx.newID(), ctx: r.ctx}}
	w.version = minVersion(g, wmBaseSupportedVersion)
	r.ctx.add(w)
	if err := r.bind(g, w.version, w); err != nil {
		return nil, err
	}
	return w, nil
}
