package wire

import "encoding/binary"

// Encoder builds a frame incrementally. Finish() rewrites the 2-byte length
// prefix with the actual frame length and fails with ErrTooBig if the frame
// exceeds MTU.
type Encoder struct {
	buf []byte
}

// NewEncoder starts a frame of the given packet type: 2 placeholder length
// bytes, then the type byte.
func NewEncoder(t PacketType) *Encoder {
	e := &Encoder{buf: make([]byte, 0, 256)}
	e.buf = append(e.buf, 0, 0, byte(t))
	return e
}

func (e *Encoder) Uint8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

func (e *Encoder) Uint16(v uint16) *Encoder {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
	return e
}

func (e *Encoder) Uint32(v uint32) *Encoder {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
	return e
}

func (e *Encoder) Uint64(v uint64) *Encoder {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
	return e
}

func (e *Encoder) Bytes(v []byte) *Encoder {
	e.buf = append(e.buf, v...)
	return e
}

// String appends value followed by a NUL terminator.
func (e *Encoder) String(v string) *Encoder {
	e.buf = append(e.buf, v...)
	e.buf = append(e.buf, 0)
	return e
}

// Len returns the number of bytes written so far, length prefix included.
func (e *Encoder) Len() int { return len(e.buf) }

// Finish rewrites the length prefix and returns the complete frame. The
// Encoder must not be reused afterwards.
func (e *Encoder) Finish() ([]byte, error) {
	if len(e.buf) > MTU {
		return nil, &ErrTooBig{Size: len(e.buf)}
	}
	binary.LittleEndian.PutUint16(e.buf[0:2], uint16(len(e.buf)))
	return e.buf, nil
}
