package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dispatchedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_dispatched",
	Help: "Number of requests handed to the execution collaborator",
}, []string{"sink", "command"})

var dispatchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_dispatch_errors",
	Help: "Number of requests which failed to dispatch",
}, []string{"sink"})

var notifyDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_notify_dropped",
	Help: "Number of admin notices dropped by the rate limiter",
})
