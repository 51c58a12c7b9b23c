// Package metrics exposes the process's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts completed turns by outcome ("ok" or "error").
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapbot_turns_total",
		Help: "Completed conversation turns by outcome.",
	}, []string{"outcome"})

	// ToolCallsTotal counts tool invocations by tool name and outcome.
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapbot_tool_calls_total",
		Help: "Tool invocations by tool and outcome.",
	}, []string{"tool", "outcome"})

	// ToolCallDuration observes tool invocation latency.
	ToolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mapbot_tool_call_duration_seconds",
		Help:    "Tool invocation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	// ActiveSessions tracks currently connected sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mapbot_active_sessions",
		Help: "Currently connected chat sessions.",
	})
)
