package spamcheck

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forumkit/spamsweep/spamcheck/casestore"
	"github.com/forumkit/spamsweep/spamcheck/statestore"
)

func registerItem(host *MockHost, item ContentItem) *ContentItem {
	stored := item
	host.Items[item.ID] = &stored
	return &stored
}

func TestEngineContentCreated(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, _, _ := EngineTestFixture()

	item := ContentItem{
		ID:     1,
		UserID: 100,
		Raw:    "an ordinary reply with enough length",
	}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{
		Item:      item,
		IPAddress: "1.2.3.4",
		UserAgent: "test-agent",
	}))

	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(statestore.StateNew, rec.State)
	assert.Equal("1.2.3.4", *rec.IPAddress)

	// ineligible: private topic is recorded as skipped, never swept
	private := ContentItem{
		ID:           2,
		UserID:       100,
		Raw:          "an ordinary reply with enough length",
		TopicPrivate: true,
	}
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: private}))
	rec, err = eng.States.GetRecord(ctx, statestore.ItemTypePost, 2)
	assert.NoError(err)
	assert.Equal(statestore.StateSkipped, rec.State)

	// malformed events rejected at the boundary
	assert.Error(eng.ProcessContentCreated(ctx, ContentCreatedEvent{}))
}

func TestEngineDisabledNoop(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, classifier, _ := EngineTestFixture()
	eng.Config.APIKey = ""

	item := ContentItem{ID: 1, UserID: 100, Raw: "an ordinary reply with enough length"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))

	_, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 1)
	assert.ErrorIs(err, statestore.ErrNotFound)

	stats, err := eng.SweepPending(ctx)
	assert.NoError(err)
	assert.Equal(0, stats.Swept)
	assert.Equal(0, classifier.Checks)
}

func TestEngineSweepSpamVerdict(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, _, notifier := EngineTestFixture()

	item := ContentItem{
		ID:         1,
		UserID:     100,
		Raw:        "spamword buy cheap watches online now",
		Cooked:     "<p>spamword buy cheap watches online now</p>",
		AuthorName: "spammer",
	}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item, IPAddress: "1.2.3.4"}))

	stats, err := eng.SweepPending(ctx)
	assert.NoError(err)
	assert.Equal(1, stats.SpamFound)

	// content destroyed, author notified
	assert.Equal([]int64{1}, host.Destroyed)
	assert.Equal([]int64{1}, host.Notified)

	// state advanced, exactly one case raised, attributed to the system actor
	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(statestore.StateNeedsReview, rec.State)

	mc, err := eng.Cases.GetByTarget(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(casestore.StatusOpen, mc.Status)
	assert.Equal(casestore.SystemActor, mc.CreatedBy)
	assert.Contains(mc.Payload, "spamword")

	// one batch notification carrying the count
	assert.Equal([]int{1}, notifier.Sent)
}

func TestEngineSweepHamVerdict(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, _, notifier := EngineTestFixture()

	item := ContentItem{ID: 1, UserID: 100, Raw: "a perfectly normal forum reply here"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))

	stats, err := eng.SweepPending(ctx)
	assert.NoError(err)
	assert.Equal(1, stats.Checked)
	assert.Equal(0, stats.SpamFound)
	assert.Empty(host.Destroyed)
	assert.Empty(notifier.Sent)

	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(statestore.StateChecked, rec.State)
}

func TestEngineSweepIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, classifier, notifier := EngineTestFixture()

	item := ContentItem{ID: 1, UserID: 100, Raw: "spamword buy cheap watches online now"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))

	_, err := eng.SweepPending(ctx)
	assert.NoError(err)
	checksAfterFirst := classifier.Checks

	// second sweep: item left "new", so no re-check, no duplicate effects
	stats, err := eng.SweepPending(ctx)
	assert.NoError(err)
	assert.Equal(0, stats.Swept)
	assert.Equal(checksAfterFirst, classifier.Checks)
	assert.Equal([]int64{1}, host.Destroyed)
	assert.Equal([]int64{1}, host.Notified)
	assert.Equal([]int{1}, notifier.Sent)
}

func TestEngineClassifierFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, _, _ := EngineTestFixture()

	item := ContentItem{ID: 1, UserID: 100, Raw: "flaky but otherwise normal content here"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))

	stats, err := eng.SweepPending(ctx)
	assert.NoError(err)
	assert.Equal(1, stats.Errors)

	// stays "new" for the next sweep; no case, no destruction
	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(statestore.StateNew, rec.State)
	_, err = eng.Cases.GetByTarget(ctx, statestore.ItemTypePost, 1)
	assert.ErrorIs(err, casestore.ErrNotFound)
	assert.Empty(host.Destroyed)
}

func TestEngineClassifierRetryBudget(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, _, _ := EngineTestFixture()
	eng.Config.MaxCheckRetries = 3

	item := ContentItem{ID: 1, UserID: 100, Raw: "flaky but otherwise normal content here"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))

	for i := 0; i < 3; i++ {
		_, err := eng.SweepPending(ctx)
		assert.NoError(err)
	}

	// budget exhausted: marked skipped instead of retrying forever
	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(statestore.StateSkipped, rec.State)
}

func TestEngineStaleItemSkipped(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, classifier, _ := EngineTestFixture()

	item := ContentItem{ID: 1, UserID: 100, Raw: "an ordinary reply with enough length"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))

	// content vanishes between enqueue and sweep
	delete(host.Items, 1)

	stats, err := eng.SweepPending(ctx)
	assert.NoError(err)
	assert.Equal(1, stats.Skipped)
	assert.Equal(0, classifier.Checks)

	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(statestore.StateSkipped, rec.State)
}

// wraps a state store so paging one item type fails.
type pendingFailStore struct {
	statestore.StateStore
	failType string
}

func (s *pendingFailStore) Pending(ctx context.Context, itemType string, afterID uint, limit int) ([]statestore.CheckRecord, error) {
	if itemType == s.failType {
		return nil, fmt.Errorf("backing store unavailable")
	}
	return s.StateStore.Pending(ctx, itemType, afterID, limit)
}

func TestEngineSweepNotifiesOnPartialFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, _, notifier := EngineTestFixture()
	eng.States = &pendingFailStore{StateStore: eng.States, failType: statestore.ItemTypeUser}

	item := ContentItem{ID: 1, UserID: 100, Raw: "spamword buy cheap watches online now"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))

	// the post sweep flags spam, then the user sweep errors out; the
	// notification for the completed portion must still go out
	stats, err := eng.SweepPending(ctx)
	assert.Error(err)
	assert.Equal(1, stats.SpamFound)
	assert.Equal([]int{1}, notifier.Sent)
}

func TestEngineFastPathScrutiny(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, classifier, _ := EngineTestFixture()

	// first post from a freshly promoted trust-level-1 user is checked
	// immediately, not left for the sweep
	item := ContentItem{
		ID:               1,
		UserID:           100,
		Raw:              "spamword first post from a new account",
		AuthorTrustLevel: 1,
		AuthorPostCount:  0,
	}
	registerItem(host, item)
	assert.True(NeedsScrutiny(&item))
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))
	assert.Equal(0, classifier.Checks)

	assert.NoError(eng.CheckItemNow(ctx, item.ID))
	assert.Equal(1, classifier.Checks)
	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(statestore.StateNeedsReview, rec.State)
	assert.Equal([]int64{1}, host.Destroyed)

	// already-decided items are not re-dispatched
	assert.NoError(eng.CheckItemNow(ctx, item.ID))
	assert.Equal(1, classifier.Checks)
}

func TestEngineRescreenAfterResolvedCase(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, classifier, _ := EngineTestFixture()

	item := ContentItem{ID: 1, UserID: 100, Raw: "spamword buy cheap watches online now"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))
	_, err := eng.SweepPending(ctx)
	assert.NoError(err)
	checksAfterFirst := classifier.Checks

	// moderator overturns the verdict and the author restores an edited item
	assert.NoError(eng.ProcessModeratorDecision(ctx, ModeratorDecisionEvent{
		TargetType: statestore.ItemTypePost,
		TargetID:   1,
	}))
	edited := ContentItem{ID: 1, UserID: 100, Raw: "a perfectly ordinary reply after editing"}
	registerItem(host, edited)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: edited}))

	// the resolved case must not pin the item in needs_review unclassified
	stats, err := eng.SweepPending(ctx)
	assert.NoError(err)
	assert.Equal(1, stats.Checked)
	assert.Equal(checksAfterFirst+1, classifier.Checks)

	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(statestore.StateChecked, rec.State)
	mc, err := eng.Cases.GetByTarget(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(casestore.StatusConfirmedHam, mc.Status)
}

func TestEngineRescreenSpamReopensCase(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, classifier, _ := EngineTestFixture()

	item := ContentItem{ID: 1, UserID: 100, Raw: "spamword buy cheap watches online now"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))
	_, err := eng.SweepPending(ctx)
	assert.NoError(err)

	assert.NoError(eng.ProcessModeratorDecision(ctx, ModeratorDecisionEvent{
		TargetType: statestore.ItemTypePost,
		TargetID:   1,
	}))
	stillSpam := ContentItem{ID: 1, UserID: 100, Raw: "spamword buy even cheaper watches now"}
	registerItem(host, stillSpam)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: stillSpam}))

	stats, err := eng.SweepPending(ctx)
	assert.NoError(err)
	assert.Equal(1, stats.SpamFound)
	assert.Equal(2, classifier.Checks)

	mc, err := eng.Cases.GetByTarget(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(casestore.StatusOpen, mc.Status)
}

func TestEngineModeratorDecision(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, classifier, _ := EngineTestFixture()

	item := ContentItem{ID: 1, UserID: 100, Raw: "spamword buy cheap watches online now"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))
	_, err := eng.SweepPending(ctx)
	assert.NoError(err)

	// moderator overturns the verdict
	assert.NoError(eng.ProcessModeratorDecision(ctx, ModeratorDecisionEvent{
		TargetType: statestore.ItemTypePost,
		TargetID:   1,
	}))
	mc, err := eng.Cases.GetByTarget(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(casestore.StatusConfirmedHam, mc.Status)
	assert.Equal(1, len(classifier.Feedback))
	assert.Equal("ham", string(classifier.Feedback[0]))

	// decision for a target with no case is logged and dropped
	assert.NoError(eng.ProcessModeratorDecision(ctx, ModeratorDecisionEvent{
		TargetType:    statestore.ItemTypePost,
		TargetID:      99,
		ConfirmedSpam: true,
	}))
}

func TestEngineModeratorDecisionFeedbackFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, classifier, _ := EngineTestFixture()

	item := ContentItem{ID: 1, UserID: 100, Raw: "spamword buy cheap watches online now"}
	registerItem(host, item)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item}))
	_, err := eng.SweepPending(ctx)
	assert.NoError(err)

	// feedback reporting is best effort: failure never escalates
	classifier.FailFeedback = true
	assert.NoError(eng.ProcessModeratorDecision(ctx, ModeratorDecisionEvent{
		TargetType:    statestore.ItemTypePost,
		TargetID:      1,
		ConfirmedSpam: true,
	}))
	mc, err := eng.Cases.GetByTarget(ctx, statestore.ItemTypePost, 1)
	assert.NoError(err)
	assert.Equal(casestore.StatusConfirmedSpam, mc.Status)
}

func TestEngineUserAnonymized(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, host, _, _ := EngineTestFixture()

	for i := int64(1); i <= 2; i++ {
		item := ContentItem{ID: i, UserID: 100, Raw: "an ordinary reply with enough length"}
		registerItem(host, item)
		assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: item, IPAddress: "1.2.3.4"}))
	}
	other := ContentItem{ID: 3, UserID: 200, Raw: "an ordinary reply with enough length"}
	registerItem(host, other)
	assert.NoError(eng.ProcessContentCreated(ctx, ContentCreatedEvent{Item: other, IPAddress: "9.9.9.9"}))

	assert.NoError(eng.ProcessUserAnonymized(ctx, UserAnonymizedEvent{UserID: 100}))

	for i := int64(1); i <= 2; i++ {
		rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, i)
		assert.NoError(err)
		assert.Equal("0.0.0.0", *rec.IPAddress)
	}
	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, 3)
	assert.NoError(err)
	assert.Equal("9.9.9.9", *rec.IPAddress)
}
