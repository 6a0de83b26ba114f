// Package wire implements the binary content protocol's framing and
// primitive encode/decode (spec.md §4.1). It performs no I/O: bytes in,
// bytes out.
/*
 * Grounded on the original bananas_server's openttd/protocol/{read,write,exceptions}.py.
 */
package wire

import "fmt"

// PacketInvalid is the base error for wire-protocol violations. Handlers
// close the offending connection with an info-level log line and never
// propagate this across connections (spec.md §7).
type PacketInvalid struct {
	Kind string
	Msg  string
}

func (e *PacketInvalid) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func newInvalid(kind, format string, a ...any) *PacketInvalid {
	return &PacketInvalid{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

func ErrInvalidSize(format string, a ...any) *PacketInvalid { return newInvalid("PacketInvalidSize", format, a...) }
func ErrInvalidType(format string, a ...any) *PacketInvalid { return newInvalid("PacketInvalidType", format, a...) }
func ErrInvalidData(format string, a ...any) *PacketInvalid { return newInvalid("PacketInvalidData", format, a...) }

// ErrTooBig is returned by Encoder.Finish when the assembled frame exceeds
// the 1460-byte MTU.
type ErrTooBig struct{ Size int }

func (e *ErrTooBig) Error() string { return fmt.Sprintf("PacketTooBig: %d bytes", e.Size) }
