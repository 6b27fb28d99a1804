package spamcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forumkit/spamsweep/spamcheck/statestore"
)

func TestTransitionTable(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultConfig()

	// stale content skips without side effects
	d := transition(checkOutcome{stale: true}, &cfg)
	assert.Equal(statestore.StateSkipped, d.next)
	assert.False(d.destroy)
	assert.False(d.raiseCase)

	// spam verdict: full side-effect set
	d = transition(checkOutcome{spam: true}, &cfg)
	assert.Equal(statestore.StateNeedsReview, d.next)
	assert.True(d.destroy)
	assert.True(d.notify)
	assert.True(d.raiseCase)
	assert.True(d.countSpam)

	// ham verdict: checked, nothing else
	d = transition(checkOutcome{}, &cfg)
	assert.Equal(statestore.StateChecked, d.next)
	assert.False(d.destroy)
	assert.False(d.raiseCase)

	// classifier failure below the retry cap: stay in "new"
	d = transition(checkOutcome{failed: true, failCount: 1}, &cfg)
	assert.True(d.stay)

	// failure at the retry cap: give up
	d = transition(checkOutcome{failed: true, failCount: cfg.MaxCheckRetries}, &cfg)
	assert.False(d.stay)
	assert.Equal(statestore.StateSkipped, d.next)
}

func TestTransitionNotifyConfig(t *testing.T) {
	assert := assert.New(t)
	cfg := DefaultConfig()
	cfg.NotifyUser = false

	d := transition(checkOutcome{spam: true}, &cfg)
	assert.Equal(statestore.StateNeedsReview, d.next)
	assert.True(d.destroy)
	assert.False(d.notify)
}
