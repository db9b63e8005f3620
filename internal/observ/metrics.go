package observ

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ActionsTotal counts action-layer calls by operation and outcome kind
	// ("ok" or an error kind).
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huddle",
		Name:      "actions_total",
		Help:      "Action layer calls by operation and result.",
	}, []string{"action", "result"})

	RealtimeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "huddle",
		Name:      "realtime_events_total",
		Help:      "Change events delivered to subscribers by table and kind.",
	}, []string{"table", "kind"})

	RealtimeDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "huddle",
		Name:      "realtime_dropped_total",
		Help:      "Change events dropped because a subscriber buffer was full.",
	})

	StaleFetchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "huddle",
		Name:      "realtime_stale_fetches_total",
		Help:      "Fetch results discarded because the conversation changed.",
	})

	WSSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "huddle",
		Name:      "ws_sessions",
		Help:      "Open websocket sessions.",
	})

	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "huddle",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-user rate limiter.",
	})
)

func init() {
	prometheus.MustRegister(
		ActionsTotal,
		RealtimeEventsTotal,
		RealtimeDroppedTotal,
		StaleFetchesTotal,
		WSSessions,
		RateLimitedTotal,
	)
}
