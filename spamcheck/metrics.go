package spamcheck

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var itemsSweptCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spamsweep_items_swept",
	Help: "Number of pending items processed by sweeps",
}, []string{"type"})

var verdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spamsweep_verdicts",
	Help: "Number of state transitions, by item type and outcome",
}, []string{"type", "outcome"})

var classifierErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "spamsweep_classifier_errors",
	Help: "Number of failed classifier calls",
})

var feedbackSubmitCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spamsweep_feedback_submissions",
	Help: "Number of moderator decisions reported back to the classifier",
}, []string{"verdict"})

var sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "spamsweep_sweep_duration_sec",
	Help: "Total duration of pending-item sweeps",
})

var spamNotifyCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "spamsweep_spam_notifications",
	Help: "Number of spam-found notifications emitted",
})
