package wire

// PacketType identifies the frame's payload shape (spec.md §6).
type PacketType uint8

const (
	PacketClientInfoList     PacketType = 0
	PacketClientInfoID       PacketType = 1
	PacketClientInfoExtID    PacketType = 2
	PacketClientInfoExtIDMD5 PacketType = 3
	PacketServerInfo         PacketType = 4
	PacketClientContent      PacketType = 5
	PacketServerContent      PacketType = 6
	PacketEnd                PacketType = 7 // reserved sentinel, never valid on the wire
)

// MTU is the maximum frame size, length prefix included (spec.md §4.1).
const MTU = 1460
