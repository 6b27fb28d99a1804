package spamcheck

import (
	"github.com/forumkit/spamsweep/spamcheck/statestore"
)

// checkOutcome is what one classification attempt learned about a pending
// item.
type checkOutcome struct {
	// stale: the content, its topic, or the user vanished between enqueue and
	// processing
	stale bool
	// failed: the classifier call errored; failCount includes this failure
	failed    bool
	failCount int
	spam      bool
}

// decision is the next state plus the side effects to apply. Keeping this a
// pure function of the outcome lets the state machine be tested without any
// store or network behind it.
type decision struct {
	next statestore.CheckState
	// stay: leave the record in "new" for the next sweep
	stay      bool
	destroy   bool
	notify    bool
	raiseCase bool
	countSpam bool
}

func transition(out checkOutcome, cfg *Config) decision {
	switch {
	case out.stale:
		return decision{next: statestore.StateSkipped}
	case out.failed:
		if cfg.MaxCheckRetries > 0 && out.failCount >= cfg.MaxCheckRetries {
			// retry budget exhausted, stop reprocessing forever
			return decision{next: statestore.StateSkipped}
		}
		return decision{stay: true}
	case out.spam:
		return decision{
			next:      statestore.StateNeedsReview,
			destroy:   true,
			notify:    cfg.NotifyUser,
			raiseCase: true,
			countSpam: true,
		}
	default:
		return decision{next: statestore.StateChecked}
	}
}
