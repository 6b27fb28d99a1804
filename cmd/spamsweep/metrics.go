package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("spamsweep")

var eventReceivedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spamsweep_events_received",
	Help: "Number of host events received, by type",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spamsweep_event_errors",
	Help: "Number of host events rejected or failed, by type",
}, []string{"type"})
