// Package httpapi implements the HTTP surface (spec.md §4.8): the CDN
// balancer endpoint, the reload control endpoint, health/metrics, and an
// optional WebSocket tunnel into the binary content protocol.
/*
 * Grounded on the original bananas_server's application/web.py.
 */
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OpenTTD/bananas-server/catalog"
	"github.com/OpenTTD/bananas-server/cdn"
	"github.com/OpenTTD/bananas-server/internal/nlog"
	"github.com/OpenTTD/bananas-server/server"
	"github.com/OpenTTD/bananas-server/storage"
)

// Server bundles everything the HTTP handlers need. It holds no mutable
// state of its own: the catalog and CDN pool carry their own synchronization.
type Server struct {
	Catalog      *catalog.Catalog
	Backend      storage.Backend
	CDN          *cdn.Pool
	App          *server.Application
	ReloadSecret string
	TrustForwardedProto bool

	upgrader websocket.Upgrader
}

func New(cat *catalog.Catalog, backend storage.Backend, pool *cdn.Pool, app *server.Application, reloadSecret string, trustForwardedProto bool) *Server {
	return &Server{
		Catalog:             cat,
		Backend:             backend,
		CDN:                 pool,
		App:                 app,
		ReloadSecret:        reloadSecret,
		TrustForwardedProto: trustForwardedProto,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Routes builds the mux. Kept separate from New so tests can mount it on an
// httptest.Server without also starting the TCP content listener.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bananas", s.handleBananas)
	mux.HandleFunc("/reload", s.handleReload)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleRoot upgrades WebSocket requests into a content-protocol tunnel;
// anything else is a 404, matching a server whose only non-API route is the
// upgrade endpoint.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || !websocket.IsWebSocketUpgrade(r) {
		http.NotFound(w, r)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		nlog.Warningf("httpapi: websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	conn := server.NewConn(newWSConn(ws), s.App, false)
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := conn.Serve(ctx); err != nil {
			nlog.Infof("httpapi: websocket tunnel %s closed: %v", conn.ID, err)
		}
	}()
}

// serverTimeout is a 10-second bound for control-plane requests; Routes does
// not apply it, and cmd/bananasrv serves the mux without timeouts.
const serverTimeout = 10 * time.Second
