package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var chatProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "warden_event_duration_sec",
	Help: "Total duration of chat event processing",
})

var chatProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_chat_processed",
	Help: "Number of chat events processed",
}, []string{"channel"})

var chatErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_chat_errors",
	Help: "Number of chat events which failed processing",
})

var violationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_violations",
	Help: "Number of wordlist matches, by section",
}, []string{"section"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_actions",
	Help: "Number of measures taken, by effective action",
}, []string{"action"})

var actionErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_action_errors",
	Help: "Number of requests the dispatcher refused",
}, []string{"command"})

var circuitBreakCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_circuit_breaks",
	Help: "Number of bans downgraded by the daily quota",
}, []string{"action"})

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_commands",
	Help: "Number of in-game commands run",
}, []string{"command"})

var wordlistRejections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_wordlist_rejections",
	Help: "Number of wordlist reloads rejected by the pattern guard",
})

var heatRecordsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warden_heat_records",
	Help: "Number of players with heat records after the last sweep or load",
})

var persistErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_persist_errors",
	Help: "Number of failed heat record saves",
})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_event_errors",
	Help: "Number of feed events which failed processing",
}, []string{"type"})
