package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_events_received",
	Help: "Number of game-server events received, by source",
}, []string{"source"})

var eventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_events_failed",
	Help: "Number of game-server events that could not be decoded or processed",
}, []string{"source"})

var eventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warden_event_queue_depth",
	Help: "Events waiting to be processed",
})
