package wl

import "github.com/bnema/waygrad/internal/wire"

const compositorSupportedVersion = 4

const opCompositorCreateSurface = 0

// Compositor is the global in charge of combining surface contents
// into displayable output.
type Compositor struct {
	object
	version uint32
}

// Version returns the bound protocol version.
func (c *Compositor) Version() uint32 { return c.version }

func (c *Compositor) dispatch(*wire.Event) {}

// CreateSurface asks the compositor for a new surface.
func (c *Compositor) CreateSurface() (*Surface, error) {
	s := &Surface{object: object{id: c.ctx.newID(), ctx: c.ctx}}
	c.ctx.add(s)
	if err := c.ctx.write(c.request(opCompositorCreateSurface).PutUint(s.id)); err != nil {
		return nil, err
	}
	return s, nil
}
