// Command bananasrv runs the content-distribution server: the binary TCP
// content protocol, the HTTP balancer/control surface, and the background
// catalog reload and CDN health-probe loops.
/*
 * Grounded on the teacher's cmd/authn/main.go wiring shape.
 */
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OpenTTD/bananas-server/catalog"
	"github.com/OpenTTD/bananas-server/cdn"
	"github.com/OpenTTD/bananas-server/config"
	"github.com/OpenTTD/bananas-server/content"
	"github.com/OpenTTD/bananas-server/httpapi"
	"github.com/OpenTTD/bananas-server/internal/cos"
	"github.com/OpenTTD/bananas-server/internal/nlog"
	"github.com/OpenTTD/bananas-server/server"
	"github.com/OpenTTD/bananas-server/stats"
	"github.com/OpenTTD/bananas-server/storage"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		cos.ExitLogf("config: %v", err)
	}

	nlog.SetToStderr(cfg.LogToStderr)
	nlog.SetAlsoStderr(cfg.AlsoLogStderr)
	if !cfg.LogToStderr {
		if err := nlog.SetPre(cfg.LogDir, "bananas"); err != nil {
			cos.ExitLogf("nlog: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop := make(chan struct{})
	go nlog.FlushLoop(2*time.Second, stop)
	defer close(stop)

	var backend storage.Backend
	if cfg.StorageBucket != "" {
		backend = storage.NewS3(cfg.StorageBucket)
	} else {
		backend = storage.NewLocal(cfg.StorageRoot)
	}

	loader := catalog.NewLoader(cfg.IndexRoot, backend)
	cat := catalog.New(loader, backend)

	collector := stats.NewCollector()
	cat.OnReloadStarted = collector.ReloadStarted
	cat.OnReloadFailed = collector.ReloadFailed
	cat.OnReloadCompleted = collector.ReloadCompleted

	app := server.NewApplication(cat, backend)
	app.Metrics = collector
	if cfg.BootstrapUniqueID != "" {
		uid, err := content.ParseUniqueIDHex(cfg.BootstrapUniqueID)
		if err != nil {
			cos.ExitLogf("config: --bootstrap-unique-id: %v", err)
		}
		app.BootstrapUniqueID = &uid
	}

	pool := cdn.New(cfg.CDNURLs, cfg.CDNFallback)
	pool.OnHealthyCount = func(n int) { collector.CDNHealthy.Set(float64(n)) }
	go pool.Run(ctx)

	httpSrv := httpapi.New(cat, backend, pool, app, cfg.ReloadSecret, cfg.TrustForwardedProto)
	go func() {
		nlog.Infof("httpapi: listening on %s", cfg.HTTPAddr)
		if err := http.ListenAndServe(cfg.HTTPAddr, httpSrv.Routes()); err != nil {
			cos.ExitLogf("httpapi: %v", err)
		}
	}()

	nlog.Infof("catalog: running initial load from %s", cfg.IndexRoot)
	if started := cat.Reload(ctx); !started {
		cos.ExitLogf("catalog: initial reload did not start")
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		cos.ExitLogf("server: listening on %s: %v", cfg.ListenAddr, err)
	}
	defer listener.Close()
	nlog.Infof("server: listening on %s", cfg.ListenAddr)

	go acceptLoop(ctx, listener, app, cfg.ProxyProtocol)

	<-ctx.Done()
	nlog.Infof("server: shutting down")
	nlog.Flush()
}

func acceptLoop(ctx context.Context, listener net.Listener, app *server.Application, proxyProtocol bool) {
	for {
		raw, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				nlog.Warningf("server: accept: %v", err)
				continue
			}
		}

		conn := server.NewConn(raw, app, proxyProtocol)
		go func() {
			if err := conn.Serve(ctx); err != nil {
				nlog.Infof("server: conn %s: %v", conn.ID, err)
			}
		}()
	}
}
