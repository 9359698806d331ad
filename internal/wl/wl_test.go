package wl

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/bnema/waygrad/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newTestDisplay returns a display speaking to a scripted peer over a
// socketpair. Requests and events share the same framing, so the peer
// side reuses wire.Conn for both directions.
func newTestDisplay(t *testing.T) (*Display, *wire.Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	var conns [2]*wire.Conn
	for i, fd := range fds {
		f := os.NewFile(uintptr(fd), "socketpair")
		c, err := net.FileConn(f)
		f.Close()
		require.NoError(t, err)
		conns[i] = wire.NewConn(c.(*net.UnixConn))
	}
	d := FromConn(conns[0])
	t.Cleanup(func() {
		d.Context().Close()
		conns[1].Close()
	})
	return d, conns[1]
}

func readRequest(t *testing.T, peer *wire.Conn) *wire.Event {
	t.Helper()
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(time.Second)))
	req, err := peer.ReadEvent()
	require.NoError(t, err)
	return req
}

func TestGetRegistryRequest(t *testing.T) {
	d, peer := newTestDisplay(t)

	reg, err := d.GetRegistry()
	require.NoError(t, err)

	req := readRequest(t, peer)
	assert.Equal(t, uint32(1), req.Object, "addressed to the display")
	assert.Equal(t, uint16(1), req.Opcode)
	assert.Equal(t, reg.ID(), req.Uint(), "carries the new registry id")
}

func TestRegistryGlobalEvent(t *testing.T) {
	d, peer := newTestDisplay(t)

	reg, err := d.GetRegistry()
	require.NoError(t, err)
	readRequest(t, peer)

	var got Global
	reg.OnGlobal = func(g Global) { got = g }

	ev := wire.NewRequest(reg.ID(), 0).
		PutUint(13).
		PutString("wl_compositor").
		PutUint(4)
	require.NoError(t, peer.WriteRequest(ev))

	require.NoError(t, d.Context().Dispatch())
	assert.Equal(t, Global{Name: 13, Interface: "wl_compositor", Version: 4}, got)
}

func TestBindRequestLayout(t *testing.T) {
	d, peer := newTestDisplay(t)

	reg, err := d.GetRegistry()
	require.NoError(t, err)
	readRequest(t, peer)

	comp, err := reg.BindCompositor(Global{Name: 13, Interface: "wl_compositor", Version: 6})
	require.NoError(t, err)

	req := readRequest(t, peer)
	assert.Equal(t, reg.ID(), req.Object)
	assert.Equal(t, uint16(0), req.Opcode)
	assert.Equal(t, uint32(13), req.Uint())
	assert.Equal(t, "wl_compositor", req.String())
	assert.Equal(t, uint32(4), req.Uint(), "version capped at what the client supports")
	assert.Equal(t, comp.ID(), req.Uint())
	assert.Equal(t, uint32(4), comp.Version())
}

func TestRoundtrip(t *testing.T) {
	d, peer := newTestDisplay(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = peer.SetReadDeadline(time.Now().Add(time.Second))
		req, err := peer.ReadEvent()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, uint32(1), req.Object)
		assert.Equal(t, uint16(0), req.Opcode, "sync")
		cb := req.Uint()
		_ = peer.WriteRequest(wire.NewRequest(cb, 0).PutUint(1))
	}()

	require.NoError(t, d.Roundtrip())
	<-done
}

func TestDisplayErrorIsFatal(t *testing.T) {
	d, peer := newTestDisplay(t)

	ev := wire.NewRequest(1, 0).
		PutUint(3).
		PutUint(2).
		PutString("bad stride")
	require.NoError(t, peer.WriteRequest(ev))

	err := d.Context().Dispatch()
	require.Error(t, err)
	var derr *DisplayError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, uint32(3), derr.ObjectID)
	assert.Equal(t, uint32(2), derr.Code)
	assert.Contains(t, derr.Error(), "bad stride")

	assert.Error(t, d.Context().Dispatch(), "error is sticky")
}

func TestDeleteIDRecyclesObjectID(t *testing.T) {
	d, peer := newTestDisplay(t)

	cb, err := d.Sync()
	require.NoError(t, err)
	readRequest(t, peer)
	first := cb.ID()

	require.NoError(t, peer.WriteRequest(wire.NewRequest(1, 1).PutUint(first)))
	require.NoError(t, d.Context().Dispatch())

	cb2, err := d.Sync()
	require.NoError(t, err)
	assert.Equal(t, first, cb2.ID(), "freed id is reused")
}

func TestWmBaseAutoPong(t *testing.T) {
	d, peer := newTestDisplay(t)

	reg, err := d.GetRegistry()
	require.NoError(t, err)
	readRequest(t, peer)

	wb, err := reg.BindWmBase(Global{Name: 2, Interface: "xdg_wm_base", Version: 2})
	require.NoError(t, err)
	readRequest(t, peer)

	require.NoError(t, peer.WriteRequest(wire.NewRequest(wb.ID(), 0).PutUint(7777)))
	require.NoError(t, d.Context().Dispatch())

	pong := readRequest(t, peer)
	assert.Equal(t, wb.ID(), pong.Object)
	assert.Equal(t, uint16(3), pong.Opcode)
	assert.Equal(t, uint32(7777), pong.Uint(), "ping serial echoed back")
}

func TestToplevelConfigureAndClose(t *testing.T) {
	d, peer := newTestDisplay(t)

	reg, err := d.GetRegistry()
	require.NoError(t, err)
	comp, err := reg.BindCompositor(Global{Name: 1, Interface: "wl_compositor", Version: 4})
	require.NoError(t, err)
	wb, err := reg.BindWmBase(Global{Name: 2, Interface: "xdg_wm_base", Version: 2})
	require.NoError(t, err)
	surf, err := comp.CreateSurface()
	require.NoError(t, err)
	xs, err := wb.GetXdgSurface(surf)
	require.NoError(t, err)
	top, err := xs.GetToplevel()
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		readRequest(t, peer)
	}

	var (
		gotW, gotH int32
		gotStates  []uint32
		closed     bool
	)
	top.OnConfigure = func(w, h int32, states []uint32) {
		gotW, gotH, gotStates = w, h, states
	}
	top.OnClose = func() { closed = true }

	ev := wire.NewRequest(top.ID(), 0).PutInt(800).PutInt(600)
	ev.PutUint(8) // states array: byte length, then words
	ev.PutUint(1)
	ev.PutUint(4)
	require.NoError(t, peer.WriteRequest(ev))
	require.NoError(t, d.Context().Dispatch())

	assert.Equal(t, int32(800), gotW)
	assert.Equal(t, int32(600), gotH)
	assert.Equal(t, []uint32{1, 4}, gotStates)

	require.NoError(t, peer.WriteRequest(wire.NewRequest(top.ID(), 1)))
	require.NoError(t, d.Context().Dispatch())
	assert.True(t, closed)
}

func TestXdgSurfaceConfigureAck(t *testing.T) {
	d, peer := newTestDisplay(t)

	reg, err := d.GetRegistry()
	require.NoError(t, err)
	comp, err := reg.BindCompositor(Global{Name: 1, Interface: "wl_compositor", Version: 4})
	require.NoError(t, err)
	wb, err := reg.BindWmBase(Global{Name: 2, Interface: "xdg_wm_base", Version: 2})
	require.NoError(t, err)
	surf, err := comp.CreateSurface()
	require.NoError(t, err)
	xs, err := wb.GetXdgSurface(surf)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		readRequest(t, peer)
	}

	xs.OnConfigure = func(serial uint32) {
		require.NoError(t, xs.AckConfigure(serial))
	}
	require.NoError(t, peer.WriteRequest(wire.NewRequest(xs.ID(), 0).PutUint(31337)))
	require.NoError(t, d.Context().Dispatch())

	ack := readRequest(t, peer)
	assert.Equal(t, xs.ID(), ack.Object)
	assert.Equal(t, uint16(4), ack.Opcode)
	assert.Equal(t, uint32(31337), ack.Uint())
}

func TestKeyboardEvents(t *testing.T) {
	d, peer := newTestDisplay(t)

	reg, err := d.GetRegistry()
	require.NoError(t, err)
	seat, err := reg.BindSeat(Global{Name: 3, Interface: "wl_seat", Version: 5})
	require.NoError(t, err)
	kb, err := seat.GetKeyboard()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		readRequest(t, peer)
	}

	f, err := os.CreateTemp(t.TempDir(), "keymap")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString("xkb_keymap {};")
	require.NoError(t, err)

	var keymap string
	kb.OnKeymap = func(format uint32, mf *os.File, size uint32) {
		require.NotNil(t, mf)
		defer mf.Close()
		assert.Equal(t, KeymapFormatXKBv1, format)
		buf := make([]byte, size)
		n, _ := mf.ReadAt(buf, 0)
		keymap = string(buf[:n])
	}
	ev := wire.NewRequest(kb.ID(), 0).
		PutUint(KeymapFormatXKBv1).
		PutFd(int(f.Fd())).
		PutUint(14)
	require.NoError(t, peer.WriteRequest(ev))
	require.NoError(t, d.Context().Dispatch())
	assert.Equal(t, "xkb_keymap {};", keymap)

	var gotKey, gotState uint32
	kb.OnKey = func(serial, time, key, state uint32) {
		gotKey, gotState = key, state
	}
	ev = wire.NewRequest(kb.ID(), 3).PutUint(1).PutUint(2).PutUint(1).PutUint(KeyStatePressed)
	require.NoError(t, peer.WriteRequest(ev))
	require.NoError(t, d.Context().Dispatch())
	assert.Equal(t, uint32(1), gotKey)
	assert.Equal(t, KeyStatePressed, gotState)
}

func TestSeatCapabilities(t *testing.T) {
	d, peer := newTestDisplay(t)

	reg, err := d.GetRegistry()
	require.NoError(t, err)
	seat, err := reg.BindSeat(Global{Name: 3, Interface: "wl_seat", Version: 5})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		readRequest(t, peer)
	}

	var caps uint32
	seat.OnCapabilities = func(c uint32) { caps = c }
	require.NoError(t, peer.WriteRequest(wire.NewRequest(seat.ID(), 0).PutUint(SeatPointer|SeatKeyboard)))
	require.NoError(t, d.Context().Dispatch())
	assert.NotZero(t, caps&SeatKeyboard)
	assert.Zero(t, caps&SeatTouch)
}

func TestUnknownObjectEventDropped(t *testing.T) {
	d, peer := newTestDisplay(t)

	require.NoError(t, peer.WriteRequest(wire.NewRequest(999, 0).PutUint(1)))
	assert.NoError(t, d.Context().Dispatch())
}

func TestShmFormats(t *testing.T) {
	d, peer := newTestDisplay(t)

	reg, err := d.GetRegistry()
	require.NoError(t, err)
	s, err := reg.BindShm(Global{Name: 4, Interface: "wl_shm", Version: 1})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		readRequest(t, peer)
	}

	var formats []uint32
	s.OnFormat = func(f uint32) { formats = append(formats, f) }
	require.NoError(t, peer.WriteRequest(wire.NewRequest(s.ID(), 0).PutUint(FormatARGB8888)))
	require.NoError(t, peer.WriteRequest(wire.NewRequest(s.ID(), 0).PutUint(FormatXRGB8888)))
	require.NoError(t, d.Context().Dispatch())
	require.NoError(t, d.Context().Dispatch())
	assert.Equal(t, []uint32{FormatARGB8888, FormatXRGB8888}, formats)
}
