// Package stats wires the server's connection, transfer, and reload events
// to Prometheus counters (spec.md §4.8's `/metrics` endpoint, carried as
// part of the ambient stack even though spec.md treats raw metric emission
// as an external interface).
/*
 * Grounded on the teacher's stats package shape and
 * APTlantis-Mirror-Crates's internal/downloader direct client_golang use.
 */
package stats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/OpenTTD/bananas-server/wire"
)

// Collector implements server.Metrics against the default Prometheus
// registry.
type Collector struct {
	connectionsOpened prometheus.Counter
	connectionsActive prometheus.Gauge
	framesDispatched  *prometheus.CounterVec
	downloadsStarted  prometheus.Counter
	downloadsFailed   prometheus.Counter
	downloadBytes     prometheus.Counter

	ReloadsTotal  prometheus.Counter
	ReloadsFailed prometheus.Counter
	CDNHealthy    prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		connectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bananas_server",
			Name:      "connections_opened_total",
			Help:      "TCP content-protocol connections accepted.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bananas_server",
			Name:      "connections_active",
			Help:      "TCP content-protocol connections currently open.",
		}),
		framesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bananas_server",
			Name:      "frames_dispatched_total",
			Help:      "Client packets dispatched, by packet type.",
		}, []string{"packet_type"}),
		downloadsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bananas_server",
			Name:      "downloads_started_total",
			Help:      "CLIENT_CONTENT downloads started.",
		}),
		downloadsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bananas_server",
			Name:      "downloads_failed_total",
			Help:      "Downloads aborted by a storage or framing error.",
		}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bananas_server",
			Name:      "download_bytes_total",
			Help:      "Bytes streamed to clients across all downloads.",
		}),
		ReloadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bananas_server",
			Name:      "reloads_total",
			Help:      "Catalog reloads attempted.",
		}),
		ReloadsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bananas_server",
			Name:      "reloads_failed_total",
			Help:      "Catalog reloads that kept the previous snapshot.",
		}),
		CDNHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bananas_server",
			Name:      "cdn_healthy_urls",
			Help:      "CDN mirror URLs currently passing their health probe.",
		}),
	}

	prometheus.MustRegister(
		c.connectionsOpened, c.connectionsActive, c.framesDispatched,
		c.downloadsStarted, c.downloadsFailed, c.downloadBytes,
		c.ReloadsTotal, c.ReloadsFailed, c.CDNHealthy,
	)
	return c
}

func (c *Collector) ConnectionOpened() {
	c.connectionsOpened.Inc()
	c.connectionsActive.Inc()
}

func (c *Collector) ConnectionClosed() { c.connectionsActive.Dec() }

func (c *Collector) FrameDispatched(t wire.PacketType) {
	c.framesDispatched.WithLabelValues(packetTypeName(t)).Inc()
}

func (c *Collector) DownloadStarted()              { c.downloadsStarted.Inc() }
func (c *Collector) DownloadFailed()               { c.downloadsFailed.Inc() }
func (c *Collector) DownloadCompleted(bytes int64) { c.downloadBytes.Add(float64(bytes)) }

func (c *Collector) ReloadStarted()   { c.ReloadsTotal.Inc() }
func (c *Collector) ReloadFailed()    { c.ReloadsFailed.Inc() }
func (c *Collector) ReloadCompleted() {}

func packetTypeName(t wire.PacketType) string {
	switch t {
	case wire.PacketClientInfoList:
		return "client_info_list"
	case wire.PacketClientInfoID:
		return "client_info_id"
	case wire.PacketClientInfoExtID:
		return "client_info_extid"
	case wire.PacketClientInfoExtIDMD5:
		return "client_info_extid_md5"
	case wire.PacketClientContent:
		return "client_content"
	default:
		return "unknown"
	}
}
