package wire

import "encoding/binary"

// SplitFrames peels off as many complete length-prefixed frames as are fully
// present in buf, returning them (each including its own length+type
// header) and the unconsumed remainder. This is the frame-reassembly step
// of spec.md §4.5, factored out of the connection state machine so it can be
// unit tested without a socket.
func SplitFrames(buf []byte) (frames [][]byte, rest []byte) {
	for len(buf) > 2 {
		length := binary.LittleEndian.Uint16(buf[0:2])
		if len(buf) < int(length) {
			break
		}
		frames = append(frames, buf[:length])
		buf = buf[length:]
	}
	return frames, buf
}
