package server

import (
	"context"

	"github.com/OpenTTD/bananas-server/wire"
)

// handlerFunc decodes and handles one packet type's payload. Errors other
// than ErrSocketClosed close the connection with an info-level log line
// (spec.md §4.5 "dispatch").
type handlerFunc func(ctx context.Context, app *Application, conn *Conn, payload []byte) error

// packetTable is the fixed dispatch table spec.md §9's design notes call
// for: one entry per client packet type, each pairing a decoder with a
// handler. PacketServerInfo/PacketServerContent are outgoing-only and have
// no table entry; receiving either from a client is a protocol violation.
var packetTable = map[wire.PacketType]handlerFunc{
	wire.PacketClientInfoList:     handleClientInfoList,
	wire.PacketClientInfoID:       handleClientInfoID,
	wire.PacketClientInfoExtID:    handleClientInfoExtID,
	wire.PacketClientInfoExtIDMD5: handleClientInfoExtIDMD5,
	wire.PacketClientContent:      handleClientContent,
}

func dispatch(ctx context.Context, c *Conn, typ wire.PacketType, payload []byte) error {
	h, ok := packetTable[typ]
	if !ok {
		return wire.ErrInvalidType("packet type %d has no client handler", typ)
	}
	c.app.Metrics.FrameDispatched(typ)
	return h(ctx, c.app, c, payload)
}
