package server

import "github.com/OpenTTD/bananas-server/wire"

// Metrics receives connection- and transfer-level events from the state
// machine. The stats package implements this against Prometheus counters;
// tests and call sites that don't care use noopMetrics.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	FrameDispatched(t wire.PacketType)
	DownloadStarted()
	DownloadFailed()
	DownloadCompleted(bytes int64)
	ReloadStarted()
	ReloadFailed()
	ReloadCompleted()
}

type noopMetrics struct{}

func (noopMetrics) ConnectionOpened()               {}
func (noopMetrics) ConnectionClosed()               {}
func (noopMetrics) FrameDispatched(wire.PacketType) {}
func (noopMetrics) DownloadStarted()                {}
func (noopMetrics) DownloadFailed()                 {}
func (noopMetrics) DownloadCompleted(bytes int64)   {}
func (noopMetrics) ReloadStarted()                  {}
func (noopMetrics) ReloadFailed()                   {}
func (noopMetrics) ReloadCompleted()                {}
