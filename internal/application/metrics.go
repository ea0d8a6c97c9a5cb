package application

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	friendOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calcount",
		Name:      "friend_operations_total",
		Help:      "Friend-graph operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	weightEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calcount",
		Name:      "weight_log_entries_total",
		Help:      "Weight log insert attempts by outcome.",
	}, []string{"outcome"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calcount",
		Name:      "notifications_total",
		Help:      "Friend notifications handed to the queue, by template and result.",
	}, []string{"template", "result"})
)

// outcome maps an operation error to a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSelfRequest), errors.Is(err, ErrEmptyEntry):
		return "invalid"
	case errors.Is(err, ErrAlreadyFriends), errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrNoRequestFound), errors.Is(err, ErrNotFriends):
		return "conflict"
	default:
		return "error"
	}
}
