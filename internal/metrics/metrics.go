// Package metrics exposes the agent's Prometheus collectors. They are
// registered on the default registry and served by the local API's
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncPasses counts completed sync passes by outcome.
	SyncPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_agent_sync_passes_total",
		Help: "Completed sync passes by outcome.",
	}, []string{"outcome"})

	// Downloads counts finished video transfers by result.
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_agent_downloads_total",
		Help: "Finished video downloads by result.",
	}, []string{"result"})

	// ChannelConnected is 1 while the broker session is up.
	ChannelConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kiosk_agent_channel_connected",
		Help: "Whether the sync channel session is currently established.",
	})

	// LastSyncTimestamp is the unix time of the last finished pass.
	LastSyncTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kiosk_agent_last_sync_timestamp_seconds",
		Help: "Unix timestamp of the most recent completed sync pass.",
	})
)
