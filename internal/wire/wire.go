// Package wire implements the Wayland wire format: 8-byte message
// headers followed by 32-bit aligned arguments, with file descriptors
// carried out of band as SCM_RIGHTS control messages.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ByteOrder is the host byte order. The Wayland wire format uses the
// native byte order of the machine the compositor runs on, which for a
// local socket is always our own.
var ByteOrder = binary.NativeEndian

// HeaderSize is the size of a message header: object id, then message
// size and opcode packed into one word.
const HeaderSize = 8

// MaxMessageSize is the largest message the protocol allows. The size
// field is 16 bits and includes the header.
const MaxMessageSize = 1<<16 - 1

// Request is an outgoing message under construction. Arguments are
// appended in protocol order and the size field is patched when the
// message is serialized.
type Request struct {
	object uint32
	opcode uint16
	data   []byte
	fds    []int
}

// NewRequest starts a request for the given object and opcode.
func NewRequest(object uint32, opcode uint16) *Request {
	return &Request{object: object, opcode: opcode}
}

// Object returns the id of the object the request is addressed to.
func (r *Request) Object() uint32 { return r.object }

// Opcode returns the request opcode.
func (r *Request) Opcode() uint16 { return r.opcode }

// PutUint appends a uint argument.
func (r *Request) PutUint(v uint32) *Request {
	r.data = ByteOrder.AppendUint32(r.data, v)
	return r
}

// PutInt appends an int argument.
func (r *Request) PutInt(v int32) *Request {
	return r.PutUint(uint32(v))
}

// PutFixed appends a fixed-point argument.
func (r *Request) PutFixed(f Fixed) *Request {
	return r.PutUint(uint32(f))
}

// PutString appends a string argument: length including the NUL
// terminator, the bytes, the terminator, then padding to a word
// boundary.
func (r *Request) PutString(s string) *Request {
	r.PutUint(uint32(len(s) + 1))
	r.data = append(r.data, s...)
	r.data = append(r.data, 0)
	for len(r.data)%4 != 0 {
		r.data = append(r.data, 0)
	}
	return r
}

// PutFd queues a file descriptor to be sent in the control message
// accompanying this request. Fds occupy no space in the message body.
func (r *Request) PutFd(fd int) *Request {
	r.fds = append(r.fds, fd)
	return r
}

// Bytes serializes the request, header included.
func (r *Request) Bytes() ([]byte, error) {
	size := HeaderSize + len(r.data)
	if size > MaxMessageSize {
		return nil, fmt.Errorf("request on object %d exceeds maximum message size (%d bytes)", r.object, size)
	}
	buf := make([]byte, 0, size)
	buf = ByteOrder.AppendUint32(buf, r.object)
	buf = ByteOrder.AppendUint32(buf, uint32(size)<<16|uint32(r.opcode))
	return append(buf, r.data...), nil
}

// Event is an incoming message. Argument accessors consume the payload
// in protocol order, mirroring how generated dispatch code reads
// generated requests on the server side.
type Event struct {
	Object uint32
	Opcode uint16

	data []byte
	off  int
}

// NewEvent wraps a decoded header and payload. Used by the connection
// reader and by tests that synthesize events.
func NewEvent(object uint32, opcode uint16, payload []byte) *Event {
	return &Event{Object: object, Opcode: opcode, data: payload}
}

// Uint consumes a uint argument.
func (e *Event) Uint() uint32 {
	v := ByteOrder.Uint32(e.data[e.off:])
	e.off += 4
	return v
}

// Int consumes an int argument.
func (e *Event) Int() int32 {
	return int32(e.Uint())
}

// Fixed consumes a fixed-point argument.
func (e *Event) Fixed() Fixed {
	return Fixed(e.Uint())
}

// String consumes a string argument, dropping the NUL terminator and
// skipping the alignment padding.
func (e *Event) String() string {
	n := int(e.Uint())
	s := string(e.data[e.off : e.off+n-1])
	e.off += n
	if pad := e.off % 4; pad != 0 {
		e.off += 4 - pad
	}
	return s
}

// Array consumes an array argument and returns the raw bytes.
func (e *Event) Array() []byte {
	n := int(e.Uint())
	b := e.data[e.off : e.off+n]
	e.off += n
	if pad := e.off % 4; pad != 0 {
		e.off += 4 - pad
	}
	return b
}

// UintArray consumes an array argument of 32-bit words.
func (e *Event) UintArray() []uint32 {
	b := e.Array()
	out := make([]uint32, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, ByteOrder.Uint32(b[i:]))
	}
	return out
}

// Fixed is the protocol's signed 24.8 fixed-point number.
type Fixed int32

// FixedInt converts an integer to fixed point.
func FixedInt(v int) Fixed {
	return Fixed(v << 8)
}

// FixedFloat converts a float to fixed point, truncating toward zero.
func FixedFloat(v float64) Fixed {
	return Fixed(math.Round(v * 256))
}

// Int returns the integer part.
func (f Fixed) Int() int {
	return int(f >> 8)
}

// Float returns the value as a float64.
func (f Fixed) Float() float64 {
	return float64(f) / 256
}
