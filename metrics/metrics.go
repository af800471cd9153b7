package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gauges
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cacophony_rooms_active",
		Help: "Number of live game rooms.",
	})
	ParticipantsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cacophony_participants_connected",
		Help: "Number of active participants across all rooms.",
	})
	ViewersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cacophony_viewers_connected",
		Help: "Number of attached viewers across all rooms.",
	})

	// Counters
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cacophony_events_total",
		Help: "Inbound events processed, by event name.",
	}, []string{"event"})
	EventErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cacophony_event_errors_total",
		Help: "Inbound events rejected, by reason.",
	}, []string{"reason"})
	GamesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cacophony_games_completed_total",
		Help: "Games that reached GAME_OVER.",
	})
	ReconnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cacophony_reconnections_total",
		Help: "Reconnection attempts, by outcome.",
	}, []string{"outcome"})
)
