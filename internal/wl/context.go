// Package wl contains hand-written client bindings for the subset of
// the Wayland protocol the demo exercises: the core interfaces
// (display, registry, compositor, surface, shm, seat, keyboard) and the
// xdg-shell interfaces that turn a surface into a desktop window.
//
// Events are delivered through OnXxx callback fields on each object,
// invoked from the single goroutine that calls Context.Dispatch.
package wl

import (
	"fmt"

	"github.com/bnema/waygrad/internal/logger"
	"github.com/bnema/waygrad/internal/wire"
)

// Object is a client-side protocol object bound to a connection.
type Object interface {
	ID() uint32
	dispatch(e *wire.Event)
}

// Context owns the connection and the object table. All ids below
// 0xff000000 are client-allocated; ids freed by the server through
// wl_display.delete_id are recycled.
type Context struct {
	conn    *wire.Conn
	objects map[uint32]Object
	next    uint32
	free    []uint32

	// Fatal protocol error reported by wl_display.error, surfaced on
	// the next Dispatch.
	err error
}

const displayID = 1

// Connect dials the compositor (see wire.Dial for the lookup rules)
// and returns the display singleton.
func Connect(display string) (*Display, error) {
	conn, err := wire.Dial(display)
	if err != nil {
		return nil, err
	}
	return FromConn(conn), nil
}

// FromConn builds a context over an established connection. Used by
// Connect and by tests running against a scripted peer.
func FromConn(conn *wire.Conn) *Display {
	ctx := &Context{
		conn:    conn,
		objects: make(map[uint32]Object),
		next:    displayID + 1,
	}
	d := &Display{object: object{id: displayID, ctx: ctx}}
	ctx.objects[displayID] = d
	return d
}

// Conn exposes the underlying connection, primarily so the event loop
// can set read deadlines.
func (c *Context) Conn() *wire.Conn { return c.conn }

// Dispatch reads one event from the compositor and routes it. Events
// addressed to ids we no longer track are dropped; the protocol allows
// them to race with object destruction.
func (c *Context) Dispatch() error {
	if c.err != nil {
		return c.err
	}
	e, err := c.conn.ReadEvent()
	if err != nil {
		return err
	}
	o, ok := c.objects[e.Object]
	if !ok {
		logger.Debugf("dropping event for unknown object %d (opcode %d)", e.Object, e.Opcode)
		return nil
	}
	o.dispatch(e)
	return c.err
}

// Close tears down the connection.
func (c *Context) Close() error {
	return c.conn.Close()
}

func (c *Context) newID() uint32 {
	if n := len(c.free); n > 0 {
		id := c.free[n-1]
		c.free = c.free[:n-1]
		return id
	}
	id := c.next
	c.next++
	return id
}

func (c *Context) add(o Object) {
	c.objects[o.ID()] = o
}

// forget drops an object from the table after its destroy request has
// been sent. The id itself is recycled only once the server confirms
// with delete_id.
func (c *Context) forget(id uint32) {
	delete(c.objects, id)
}

func (c *Context) release(id uint32) {
	if _, ok := c.objects[id]; ok {
		delete(c.objects, id)
	}
	c.free = append(c.free, id)
}

func (c *Context) write(r *wire.Request) error {
	return c.conn.WriteRequest(r)
}

// object is the embedded base of every protocol object.
type object struct {
	id  uint32
	ctx *Context
}

// ID returns the object's protocol id.
func (o *object) ID() uint32 { return o.id }

// Context returns the owning context.
func (o *object) Context() *Context { return o.ctx }

func (o *object) request(opcode uint16) *wire.Request {
	return wire.NewRequest(o.id, opcode)
}

// DisplayError is the fatal error event of wl_display, kept so the
// caller can report which object misbehaved.
type DisplayError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (e *DisplayError) Error() string {
	return fmt.Sprintf("compositor reported protocol error on object %d (code %d): %s", e.ObjectID, e.Code, e.Message)
}
