// Package metrics holds the Prometheus collectors shared by the bot. Label
// values come from small fixed sets (action types, extraction kinds, command
// names) so cardinality stays bounded.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Extractions counts game bot responses by extraction kind.
	Extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epic_extractions_total",
			Help: "Game bot responses classified, by extraction kind.",
		},
		[]string{"kind"},
	)

	// Cooldowns counts cooldown records written by the observer.
	Cooldowns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epic_cooldowns_written_total",
			Help: "Cooldown records written, by action type.",
		},
		[]string{"type"},
	)

	// Commands counts dispatched bot commands by outcome.
	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epic_commands_total",
			Help: "Commands dispatched, by outcome (ok, error).",
		},
		[]string{"outcome"},
	)

	// Activities counts group activity transitions.
	Activities = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epic_group_activities_total",
			Help: "Group activities, by kind and transition (proposed, confirmed, swept).",
		},
		[]string{"kind", "transition"},
	)

	// Reminders counts reminders handed to the gateway.
	Reminders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epic_reminders_sent_total",
			Help: "Reminders sent, by action type.",
		},
		[]string{"type"},
	)

	// SendFailures counts outbound messages the gateway rejected.
	SendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "epic_send_failures_total",
			Help: "Outbound messages that failed to send.",
		},
	)

	// TickDuration records scheduler tick latency in seconds.
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "epic_scheduler_tick_seconds",
			Help:    "Duration of scheduler ticks in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// TickErrors counts scheduler ticks that failed part way.
	TickErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "epic_scheduler_tick_errors_total",
			Help: "Scheduler ticks that returned an error.",
		},
	)
)

func init() {
	prometheus.MustRegister(Extractions, Cooldowns, Commands, Activities, Reminders, SendFailures, TickDuration, TickErrors)
}
