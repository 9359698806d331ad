// Package app wires the protocol pieces into the demo: one window, one
// shared-memory buffer, one gradient, painted once. The comments walk
// through the protocol sequence step by step since showing that
// sequence is the whole point of the program.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/bnema/waygrad/internal/logger"
	"github.com/bnema/waygrad/internal/render"
	"github.com/bnema/waygrad/internal/shm"
	"github.com/bnema/waygrad/internal/wl"
)

// Linux evdev code for the Escape key.
const keyEsc = 1

// How often the event loop wakes from a blocking read to check for
// cancellation.
const dispatchWake = 250 * time.Millisecond

// Options selects the window geometry and identity.
type Options struct {
	// Display names the compositor socket; empty means "follow the
	// environment".
	Display  string
	Width    int
	Height   int
	Title    string
	AppID    string
	Gradient render.Style
}

// App is the demo application. All state lives on the one goroutine
// that runs the event loop.
type App struct {
	opts Options

	display  *wl.Display
	registry *wl.Registry

	// Globals bound from the registry.
	compositor *wl.Compositor
	shm        *wl.Shm
	seat       *wl.Seat
	wmBase     *wl.WmBase

	keyboard *wl.Keyboard

	surface    *wl.Surface
	xdgSurface *wl.XdgSurface
	toplevel   *wl.Toplevel

	pool   *shm.Pool
	buffer *wl.Buffer

	configured bool
	running    bool
}

// New builds an App. Zero or negative dimensions fall back to the
// classic 320x240.
func New(opts Options) *App {
	if opts.Width <= 0 {
		opts.Width = 320
	}
	if opts.Height <= 0 {
		opts.Height = 240
	}
	return &App{opts: opts}
}

// Run connects to the compositor and blocks until the window is
// closed, Esc is pressed, the context is cancelled, or the display
// fails.
func (a *App) Run(ctx context.Context) error {
	// Step 1: connect. The display is the starting point of any
	// Wayland session; every other object descends from it.
	display, err := wl.Connect(a.opts.Display)
	if err != nil {
		return err
	}
	return a.run(ctx, display)
}

func (a *App) run(ctx context.Context, display *wl.Display) error {
	a.display = display
	defer a.cleanup()

	if err := a.bindGlobals(); err != nil {
		return err
	}
	if err := a.createWindow(); err != nil {
		return err
	}
	if err := a.createBuffer(); err != nil {
		return err
	}

	// Step 6: block dispatching events. The compositor drives
	// everything from here: configure, ping, key and close events all
	// arrive through this single loop.
	a.running = true
	return a.loop(ctx)
}

// bindGlobals creates the registry, binds the globals the demo needs
// as they are announced, and fails fast on any missing requirement.
func (a *App) bindGlobals() error {
	// Step 2: the registry lists the compositor's global objects; one
	// global event arrives per entry, then the sync roundtrip marks
	// the end of the initial burst.
	registry, err := a.display.GetRegistry()
	if err != nil {
		return fmt.Errorf("get registry: %w", err)
	}
	a.registry = registry

	var bindErr error
	registry.OnGlobal = func(g wl.Global) {
		if bindErr != nil {
			return
		}
		logger.Debugf("global: %s v%d (name %d)", g.Interface, g.Version, g.Name)
		switch g.Interface {
		case "wl_compositor":
			a.compositor, bindErr = registry.BindCompositor(g)
		case "wl_shm":
			a.shm, bindErr = registry.BindShm(g)
			if bindErr == nil {
				a.shm.OnFormat = func(format uint32) {
					logger.Debugf("shm format: 0x%x", format)
				}
			}
		case "wl_seat":
			a.seat, bindErr = registry.BindSeat(g)
			if bindErr == nil {
				a.watchSeat()
			}
		case "xdg_wm_base":
			a.wmBase, bindErr = registry.BindWmBase(g)
		}
	}

	if err := a.display.Roundtrip(); err != nil {
		return fmt.Errorf("registry roundtrip: %w", err)
	}
	if bindErr != nil {
		return fmt.Errorf("bind global: %w", bindErr)
	}

	// Anything missing here means the compositor cannot run the demo;
	// there is no fallback path.
	switch {
	case a.compositor == nil:
		return errors.New("compositor does not advertise wl_compositor")
	case a.shm == nil:
		return errors.New("compositor does not advertise wl_shm")
	case a.wmBase == nil:
		return errors.New("compositor does not advertise xdg_wm_base")
	}
	if a.seat == nil {
		logger.Warn("no wl_seat advertised; the Esc shortcut will not work")
	}

	// The compositor kills clients that leave pings unanswered.
	a.wmBase.OnPing = func(serial uint32) {
		if err := a.wmBase.Pong(serial); err != nil {
			logger.Errorf("pong: %v", err)
		}
	}
	return nil
}

// createWindow performs step 3: surface, xdg_surface role, toplevel
// identity, then the initial commit. That first commit must not carry
// a buffer; the compositor answers it with the first configure.
func (a *App) createWindow() error {
	var err error
	if a.surface, err = a.compositor.CreateSurface(); err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	if a.xdgSurface, err = a.wmBase.GetXdgSurface(a.surface); err != nil {
		return fmt.Errorf("get xdg_surface: %w", err)
	}
	if a.toplevel, err = a.xdgSurface.GetToplevel(); err != nil {
		return fmt.Errorf("get toplevel: %w", err)
	}

	a.xdgSurface.OnConfigure = a.handleConfigure
	a.toplevel.OnConfigure = func(width, height int32, states []uint32) {
		// A size of 0x0 lets the client pick; the demo always keeps
		// its fixed geometry, which the compositor is free to scale.
		logger.Debugf("toplevel configure: %dx%d (%d states)", width, height, len(states))
	}
	a.toplevel.OnClose = func() {
		logger.Info("window closed by compositor")
		a.running = false
	}

	if err := a.toplevel.SetTitle(a.opts.Title); err != nil {
		return fmt.Errorf("set title: %w", err)
	}
	if err := a.toplevel.SetAppID(a.opts.AppID); err != nil {
		return fmt.Errorf("set app id: %w", err)
	}
	if err := a.surface.Commit(); err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}
	return nil
}

// createBuffer performs step 4: allocate the shared pool, paint the
// gradient into it once, and wrap it in a wl_buffer. The pool size and
// the buffer geometry must agree; the compositor checks.
func (a *App) createBuffer() error {
	width, height := a.opts.Width, a.opts.Height
	stride := width * 4
	size := stride * height

	pool, err := shm.Create(size)
	if err != nil {
		return fmt.Errorf("allocate %d byte pool: %w", size, err)
	}
	a.pool = pool

	if err := render.Paint(a.opts.Gradient, pool.Bytes(), width, height, stride); err != nil {
		return fmt.Errorf("paint gradient: %w", err)
	}

	wlPool, err := a.shm.CreatePool(pool.File(), int32(size))
	if err != nil {
		return fmt.Errorf("create shm pool: %w", err)
	}
	a.buffer, err = wlPool.CreateBuffer(0, int32(width), int32(height), int32(stride), wl.FormatARGB8888)
	if err != nil {
		return fmt.Errorf("create buffer: %w", err)
	}
	// One buffer is all the pool will ever serve; destroying the pool
	// object keeps the buffer alive.
	if err := wlPool.Destroy(); err != nil {
		return fmt.Errorf("destroy shm pool: %w", err)
	}
	a.buffer.OnRelease = func() {
		logger.Debug("buffer released by compositor")
	}
	return nil
}

// handleConfigure performs step 5: acknowledge, then present the
// buffer. The first attach may only happen after the first configure
// has been acked.
func (a *App) handleConfigure(serial uint32) {
	if err := a.xdgSurface.AckConfigure(serial); err != nil {
		logger.Errorf("ack configure: %v", err)
		return
	}
	first := !a.configured
	a.configured = true
	if a.buffer == nil {
		return
	}
	if err := a.present(); err != nil {
		logger.Errorf("present: %v", err)
		a.running = false
		return
	}
	if first {
		logger.Info("window mapped", "size", fmt.Sprintf("%dx%d", a.opts.Width, a.opts.Height), "gradient", a.opts.Gradient.String())
	}
}

func (a *App) present() error {
	if err := a.surface.Attach(a.buffer, 0, 0); err != nil {
		return err
	}
	if err := a.surface.Damage(0, 0, int32(a.opts.Width), int32(a.opts.Height)); err != nil {
		return err
	}
	return a.surface.Commit()
}

// watchSeat tracks seat capabilities and hooks the keyboard when one
// appears, so Esc can close the window like the desktop close button.
func (a *App) watchSeat() {
	a.seat.OnName = func(name string) {
		logger.Debugf("seat: %s", name)
	}
	a.seat.OnCapabilities = func(caps uint32) {
		hasKeyboard := caps&wl.SeatKeyboard != 0
		switch {
		case hasKeyboard && a.keyboard == nil:
			kb, err := a.seat.GetKeyboard()
			if err != nil {
				logger.Errorf("get keyboard: %v", err)
				return
			}
			a.keyboard = kb
			kb.OnKeymap = func(format uint32, f *os.File, size uint32) {
				// The demo never interprets key codes through xkb, so
				// the keymap only needs to be drained and closed.
				logger.Debugf("keymap: format %d, %d bytes", format, size)
				if f != nil {
					f.Close()
				}
			}
			kb.OnKey = a.handleKey
		case !hasKeyboard && a.keyboard != nil:
			if err := a.keyboard.Release(); err != nil {
				logger.Errorf("release keyboard: %v", err)
			}
			a.keyboard = nil
		}
	}
}

func (a *App) handleKey(serial, time, key, state uint32) {
	if state != wl.KeyStatePressed {
		return
	}
	logger.Debugf("key %d pressed (serial %d, time %d)", key, serial, time)
	if key == keyEsc {
		logger.Info("Esc pressed, exiting")
		a.running = false
	}
}

// loop dispatches events until something stops the demo. The read
// deadline only exists so context cancellation is noticed; the
// protocol work itself is purely event-driven.
func (a *App) loop(ctx context.Context) error {
	conn := a.display.Context().Conn()
	for a.running {
		select {
		case <-ctx.Done():
			logger.Info("interrupted, exiting")
			return nil
		default:
		}
		if err := conn.SetReadDeadline(time.Now().Add(dispatchWake)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		if err := a.display.Context().Dispatch(); err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("dispatch: %w", err)
		}
	}
	return nil
}

// cleanup destroys protocol objects in reverse creation order and
// releases the pool mapping. Best effort: the process is exiting and
// the compositor reclaims everything on disconnect anyway.
func (a *App) cleanup() {
	if a.keyboard != nil {
		_ = a.keyboard.Release()
	}
	if a.buffer != nil {
		_ = a.buffer.Destroy()
	}
	if a.toplevel != nil {
		_ = a.toplevel.Destroy()
	}
	if a.xdgSurface != nil {
		_ = a.xdgSurface.Destroy()
	}
	if a.surface != nil {
		_ = a.surface.Destroy()
	}
	if a.pool != nil {
		_ = a.pool.Close()
	}
	if a.display != nil {
		_ = a.display.Context().Close()
	}
}
