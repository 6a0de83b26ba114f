// Package server implements the TCP content protocol's connection state
// machine and application core (spec.md §4.5, §4.6): per-connection frame
// reassembly, strictly-ordered dispatch, write backpressure, and routing
// decoded requests against the live catalog.
/*
 * Grounded on the original bananas_server's openttd/protocol.py and
 * application/bananas_server.py.
 */
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OpenTTD/bananas-server/internal/nlog"
	"github.com/OpenTTD/bananas-server/wire"
)

// ErrSocketClosed is raised toward a handler when the peer has gone away;
// never logged as an error (spec.md §7).
var ErrSocketClosed = errors.New("server: socket closed")

type connState int32

const (
	stateAwaitingPreamble connState = iota
	stateReady
	stateClosing
)

const (
	readBufferSize  = 5 * wire.MTU
	lowWatermark    = 2 * wire.MTU
	frameQueueDepth = 64
	writeTimeout    = 30 * time.Second
	watchdogPeriod  = 5 * time.Second
)

// Conn is one accepted TCP peer, running its own reader and dispatch
// goroutines. Transport is abstracted as net.Conn so the WebSocket tunnel
// (httpapi) can hand this the same type via a net.Conn adapter.
type Conn struct {
	ID     uuid.UUID
	raw    net.Conn
	app    *Application
	source Source

	proxyEnabled bool

	stateMu sync.Mutex
	state   connState

	frames chan []byte

	writeMu   sync.Mutex
	writeGate chan struct{} // holds one token when writes are permitted
	hungSince time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// NewConn wraps an accepted connection. proxyEnabled controls whether a
// PROXY v1 preamble is expected on the first read (disabled for WebSocket
// tunnels, per spec.md §4.8).
func NewConn(raw net.Conn, app *Application, proxyEnabled bool) *Conn {
	c := &Conn{
		ID:           uuid.New(),
		raw:          raw,
		app:          app,
		source:       sourceFromAddr(raw.RemoteAddr()),
		proxyEnabled: proxyEnabled,
		state:        stateAwaitingPreamble,
		frames:       make(chan []byte, frameQueueDepth),
		writeGate:    make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	c.writeGate <- struct{}{}
	if !proxyEnabled {
		c.state = stateReady
	}
	return c
}

// Serve runs the connection to completion: preamble, frame reassembly, and
// dispatch. It returns once the peer disconnects or ctx is cancelled.
func (c *Conn) Serve(ctx context.Context) error {
	defer c.close()
	c.app.Metrics.ConnectionOpened()
	defer c.app.Metrics.ConnectionClosed()

	r := bufio.NewReaderSize(c.raw, readBufferSize)

	if c.proxyEnabled {
		if peekPreamble(r) {
			src, err := readPreamble(r)
			if err != nil {
				nlog.Warningf("server: conn %s: %v, proceeding without rewrite", c.ID, err)
			} else if src.IP != nil {
				c.source = src
			}
		} else {
			nlog.Warningf("server: conn %s: no PROXY preamble present, proceeding without rewrite", c.ID)
		}
		c.setState(stateReady)
	}

	watchdogCtx, cancelWatchdog := context.WithCancel(ctx)
	defer cancelWatchdog()
	go c.watchdog(watchdogCtx)

	dispatchCtx, cancelDispatch := context.WithCancel(ctx)
	defer cancelDispatch()
	dispatchErr := make(chan error, 1)
	go func() {
		dispatchErr <- c.dispatchLoop(dispatchCtx)
		// A handler error ends the dispatch loop; close the transport so the
		// read loop stops too and the peer sees the connection go away.
		c.close()
	}()

	readErr := c.readLoop(ctx, r)

	c.setState(stateClosing)
	close(c.frames)
	cancelDispatch()

	if readErr != nil && !errors.Is(readErr, ErrSocketClosed) {
		return readErr
	}
	return <-dispatchErr
}

// readLoop reads off the wire and pushes complete frames onto c.frames,
// preserving arrival order (spec.md §4.5 "frame reassembly").
func (c *Conn) readLoop(ctx context.Context, r *bufio.Reader) error {
	var buf []byte
	chunk := make([]byte, readBufferSize)
	for {
		select {
		case <-ctx.Done():
			return ErrSocketClosed
		default:
		}

		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			var frames [][]byte
			frames, buf = wire.SplitFrames(buf)
			for _, f := range frames {
				select {
				case c.frames <- append([]byte(nil), f...):
				case <-ctx.Done():
					return ErrSocketClosed
				}
			}
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
				return ErrSocketClosed
			}
			return fmt.Errorf("server: conn %s: read: %w", c.ID, err)
		}
	}
}

// dispatchLoop is the single goroutine handling every frame for this
// connection, in order (spec.md §4.5 "ordering guarantee").
func (c *Conn) dispatchLoop(ctx context.Context) error {
	for {
		select {
		case frame, ok := <-c.frames:
			if !ok {
				return nil
			}
			if err := c.handleFrame(ctx, frame); err != nil {
				if errors.Is(err, ErrSocketClosed) {
					return nil
				}
				nlog.Infof("server: conn %s: %v, closing", c.ID, err)
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Conn) handleFrame(ctx context.Context, frame []byte) error {
	if len(frame) < 3 {
		return wire.ErrInvalidSize("frame shorter than header: %d bytes", len(frame))
	}
	typ := wire.PacketType(frame[2])
	if typ >= wire.PacketEnd {
		return wire.ErrInvalidType("packet type %d is not a valid client packet", typ)
	}
	payload := frame[3:]
	return dispatch(ctx, c, typ, payload)
}

// Write sends one complete frame, waiting on the backpressure gate first
// (spec.md §4.5 "backpressure").
func (c *Conn) Write(frame []byte) error {
	select {
	case <-c.writeGate:
	case <-c.done:
		return ErrSocketClosed
	}

	c.writeMu.Lock()
	c.raw.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.raw.Write(frame)
	c.raw.SetWriteDeadline(time.Time{})
	c.writeMu.Unlock()

	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			// Leave the gate closed: the watchdog forces it back open once
			// the write has been stuck for a full watchdog period.
			c.stateMu.Lock()
			c.hungSince = time.Now()
			c.stateMu.Unlock()
			return nil
		}
		c.writeGate <- struct{}{}
		return fmt.Errorf("%w: %v", ErrSocketClosed, err)
	}

	c.writeGate <- struct{}{}
	return nil
}

// watchdog implements spec.md §4.5's half-closed detection: if a write has
// been hanging past one period, force the gate open so the next write
// attempt observes the dead transport directly.
func (c *Conn) watchdog(ctx context.Context) {
	t := time.NewTicker(watchdogPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.stateMu.Lock()
			hung := !c.hungSince.IsZero() && time.Since(c.hungSince) >= watchdogPeriod
			if hung {
				c.hungSince = time.Time{}
			}
			c.stateMu.Unlock()
			if hung {
				select {
				case c.writeGate <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (c *Conn) setState(s connState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

func (c *Conn) Source() Source { return c.source }

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.raw.Close()
	})
}
