package wire

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Conn is a connection to a Wayland compositor. Writes are serialized;
// reads are expected from a single dispatching goroutine, matching the
// single-threaded event loop this client runs.
type Conn struct {
	uc *net.UnixConn

	wmu sync.Mutex

	// File descriptors received out of band, in arrival order. The
	// protocol guarantees fds are queued before the message that
	// consumes them is dispatched.
	fds []*os.File

	// Bytes of the message currently being assembled, header first.
	// Kept on the connection so a ReadEvent cut short by a deadline
	// resumes at the same stream position instead of dropping what it
	// already consumed.
	pending []byte

	oob []byte
}

// Dial connects to the compositor named by the environment, following
// the standard lookup rules: WAYLAND_SOCKET holds an already-open
// descriptor inherited from a parent, WAYLAND_DISPLAY names a socket
// (absolute, or relative to XDG_RUNTIME_DIR), and the fallback name is
// wayland-0.
func Dial(display string) (*Conn, error) {
	if env := os.Getenv("WAYLAND_SOCKET"); display == "" && env != "" {
		fd, err := strconv.Atoi(env)
		if err != nil {
			return nil, fmt.Errorf("invalid WAYLAND_SOCKET %q: %w", env, err)
		}
		f := os.NewFile(uintptr(fd), "wayland-socket")
		c, err := net.FileConn(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("WAYLAND_SOCKET: %w", err)
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			c.Close()
			return nil, fmt.Errorf("WAYLAND_SOCKET %q is not a unix stream socket", env)
		}
		// The fd number means nothing to child processes once adopted.
		os.Unsetenv("WAYLAND_SOCKET")
		return NewConn(uc), nil
	}

	if display == "" {
		display = os.Getenv("WAYLAND_DISPLAY")
	}
	if display == "" {
		display = "wayland-0"
	}
	path := display
	if !filepath.IsAbs(path) {
		runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
		if runtimeDir == "" {
			return nil, fmt.Errorf("XDG_RUNTIME_DIR is not set; cannot locate display %q", display)
		}
		path = filepath.Join(runtimeDir, display)
	}

	uc, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("connect to compositor at %s: %w", path, err)
	}
	return NewConn(uc), nil
}

// NewConn wraps an established unix socket.
func NewConn(uc *net.UnixConn) *Conn {
	return &Conn{
		uc: uc,
		// Room for a healthy batch of descriptors per read; the demo
		// only ever receives one (the keymap).
		oob: make([]byte, unix.CmsgSpace(16*4)),
	}
}

// WriteRequest sends a request, attaching any queued descriptors to the
// same sendmsg call.
func (c *Conn) WriteRequest(r *Request) error {
	buf, err := r.Bytes()
	if err != nil {
		return err
	}
	var oob []byte
	if len(r.fds) > 0 {
		oob = unix.UnixRights(r.fds...)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, _, err := c.uc.WriteMsgUnix(buf, oob, nil); err != nil {
		return fmt.Errorf("write request (object %d, opcode %d): %w", r.object, r.opcode, err)
	}
	return nil
}

// ReadEvent blocks until one complete event has been read. Control
// messages received alongside are parsed into the descriptor queue.
// A call that fails with a deadline timeout leaves the partial message
// on the connection; the next call picks up where it stopped.
func (c *Conn) ReadEvent() (*Event, error) {
	if err := c.fill(HeaderSize); err != nil {
		return nil, err
	}
	object := ByteOrder.Uint32(c.pending[0:4])
	sizeOp := ByteOrder.Uint32(c.pending[4:8])
	size := int(sizeOp >> 16)
	opcode := uint16(sizeOp & 0xffff)
	if size < HeaderSize {
		return nil, fmt.Errorf("event header on object %d declares impossible size %d", object, size)
	}
	if err := c.fill(size); err != nil {
		return nil, err
	}
	// The event outlives the pending buffer, which is reused for the
	// next message.
	payload := make([]byte, size-HeaderSize)
	copy(payload, c.pending[HeaderSize:size])
	c.pending = c.pending[:0]
	return NewEvent(object, opcode, payload), nil
}

// fill reads until the pending buffer holds at least n bytes of the
// current message. Progress survives an error return.
func (c *Conn) fill(n int) error {
	if cap(c.pending) < n {
		grown := make([]byte, len(c.pending), n)
		copy(grown, c.pending)
		c.pending = grown
	}
	for len(c.pending) < n {
		nr, oobn, _, _, err := c.uc.ReadMsgUnix(c.pending[len(c.pending):n], c.oob)
		c.pending = c.pending[:len(c.pending)+nr]
		if oobn > 0 {
			if cerr := c.collectFds(c.oob[:oobn]); cerr != nil {
				return cerr
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) collectFds(oob []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return fmt.Errorf("parse control message: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		for _, fd := range fds {
			unix.CloseOnExec(fd)
			c.fds = append(c.fds, os.NewFile(uintptr(fd), "wayland-fd"))
		}
	}
	return nil
}

// TakeFile pops the oldest received descriptor, or nil if none is
// queued. Callers own the returned file.
func (c *Conn) TakeFile() *os.File {
	if len(c.fds) == 0 {
		return nil
	}
	f := c.fds[0]
	c.fds = c.fds[1:]
	return f
}

// SetReadDeadline bounds the next ReadEvent. The event loop uses this
// to wake up and observe cancellation.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.uc.SetReadDeadline(t)
}

// Close closes the socket and any descriptors still queued.
func (c *Conn) Close() error {
	for _, f := range c.fds {
		f.Close()
	}
	c.fds = nil
	return c.uc.Close()
}
