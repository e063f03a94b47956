package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	invoicesSweptCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dunning",
			Name:      "invoices_swept_total",
			Help:      "Invoices examined by the overdue sweep, by outcome.",
		},
		[]string{"outcome"}, // transitioned, skipped
	)
	remindersDispatchedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dunning",
			Name:      "reminders_dispatched_total",
			Help:      "Reminder dispatch attempts, by phase and outcome.",
		},
		[]string{"phase", "outcome"}, // outcome: sent, transient_failure, permanent_failure
	)
	dispatchDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dunning",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of a single reminder dispatch attempt.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
)
