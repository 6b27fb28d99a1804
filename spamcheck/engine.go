package spamcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forumkit/spamsweep/akismet"
	"github.com/forumkit/spamsweep/spamcheck/casestore"
	"github.com/forumkit/spamsweep/spamcheck/countstore"
	"github.com/forumkit/spamsweep/spamcheck/statestore"
)

// Classifier is the narrow RPC contract with the external detection service.
// Satisfied by *akismet.Client.
type Classifier interface {
	CommentCheck(ctx context.Context, cmt *akismet.Comment) (bool, error)
	SubmitFeedback(ctx context.Context, cmt *akismet.Comment, fb akismet.Feedback) error
}

// counter namespace for per-item classifier failures
const failCounterName = "check-fail"

// runtime for screening content: tracks check state, sweeps pending items
// through the classifier, and materializes moderation cases on spam verdicts.
type Engine struct {
	Logger   *slog.Logger
	Config   Config
	States   statestore.StateStore
	Cases    casestore.CaseStore
	Counters countstore.CountStore
	Client   Classifier
	Host     HostClient
	Notifier Notifier
}

// Enabled reports whether screening is active. With the feature off or no
// credential configured, every entry point is a no-op.
func (eng *Engine) Enabled() bool {
	return eng.Config.Enabled && eng.Config.APIKey != ""
}

// ProcessContentCreated evaluates eligibility for a freshly created item and
// records its initial check state; the next sweep picks it up. Items matching
// NeedsScrutiny should additionally be handed to CheckItemNow, off the
// request path.
func (eng *Engine) ProcessContentCreated(ctx context.Context, evt ContentCreatedEvent) error {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("event processing exception", "err", r, "itemID", evt.Item.ID)
		}
	}()

	if !eng.Enabled() {
		return nil
	}
	if err := evt.Validate(); err != nil {
		return err
	}

	item := evt.Item
	meta := metadataFromStrings(evt.IPAddress, evt.UserAgent, evt.Referrer)
	if !ShouldCheck(&item, &eng.Config) {
		return eng.States.SetState(ctx, statestore.ItemTypePost, item.ID, item.UserID, statestore.StateSkipped, meta)
	}
	return eng.States.SetState(ctx, statestore.ItemTypePost, item.ID, item.UserID, statestore.StateNew, meta)
}

// CheckItemNow classifies a single pending post outside the sweep cycle, for
// items flagged by NeedsScrutiny. The classifier call blocks, so callers
// dispatch this off the request-serving goroutine.
func (eng *Engine) CheckItemNow(ctx context.Context, itemID int64) error {
	if !eng.Enabled() {
		return nil
	}
	rec, err := eng.States.GetRecord(ctx, statestore.ItemTypePost, itemID)
	if errors.Is(err, statestore.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	if rec.State != statestore.StateNew {
		return nil
	}
	stats := &SweepStats{}
	eng.checkPost(ctx, *rec, stats)
	eng.notifySpamFound(ctx, stats)
	return nil
}

// ProcessBioChanged enqueues a profile-bio check. Unchanged or empty bios are
// ignored; the next sweep picks the user up.
func (eng *Engine) ProcessBioChanged(ctx context.Context, evt BioChangedEvent) error {
	if !eng.Enabled() {
		return nil
	}
	if err := evt.Validate(); err != nil {
		return err
	}
	if evt.Bio == "" || evt.Bio == evt.Previous {
		return nil
	}
	meta := metadataFromStrings(evt.IPAddress, evt.UserAgent, "")
	return eng.States.SetState(ctx, statestore.ItemTypeUser, evt.UserID, evt.UserID, statestore.StateNew, meta)
}

// ProcessModeratorDecision records a moderator's verdict on an open case and
// reports it back to the classifier. Feedback reporting is best effort:
// failures are logged and never surface to the moderation action.
func (eng *Engine) ProcessModeratorDecision(ctx context.Context, evt ModeratorDecisionEvent) error {
	if !eng.Enabled() {
		return nil
	}
	if err := evt.Validate(); err != nil {
		return err
	}
	log := eng.Logger.With("targetType", evt.TargetType, "targetID", evt.TargetID)

	status := casestore.StatusConfirmedHam
	fb := akismet.FeedbackHam
	if evt.ConfirmedSpam {
		status = casestore.StatusConfirmedSpam
		fb = akismet.FeedbackSpam
	}

	mc, err := eng.Cases.GetByTarget(ctx, evt.TargetType, evt.TargetID)
	if errors.Is(err, casestore.ErrNotFound) {
		log.Warn("moderator decision for unknown case")
		return nil
	} else if err != nil {
		return err
	}
	if err := eng.Cases.Resolve(ctx, evt.TargetType, evt.TargetID, status); err != nil {
		return err
	}

	// the original payload was retained on the case for exactly this moment
	var cmt akismet.Comment
	if err := json.Unmarshal([]byte(mc.Payload), &cmt); err != nil {
		log.Error("decoding retained payload", "err", err)
		return nil
	}
	if err := eng.Client.SubmitFeedback(ctx, &cmt, fb); err != nil {
		log.Error("submitting classifier feedback", "err", err, "verdict", fb)
		return nil
	}
	feedbackSubmitCount.WithLabelValues(string(fb)).Inc()
	return nil
}

// ProcessUserAnonymized rewrites stored IP metadata for all of the user's
// items in one bulk operation.
func (eng *Engine) ProcessUserAnonymized(ctx context.Context, evt UserAnonymizedEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	newIP := evt.NewIP
	if newIP == "" {
		newIP = "0.0.0.0"
	}
	n, err := eng.States.AnonymizeUser(ctx, evt.UserID, newIP)
	if err != nil {
		return fmt.Errorf("anonymizing stored metadata: %w", err)
	}
	eng.Logger.Info("anonymized stored IP metadata", "userID", evt.UserID, "rows", n)
	return nil
}

// SweepStats summarizes one batch pass.
type SweepStats struct {
	Swept     int
	Checked   int
	SpamFound int
	Skipped   int
	Errors    int
}

// SweepPending pages through all items still in "new" state (posts, then
// user bios), classifies each, and applies the verdict. An idle sweep makes
// no classifier call. Emits a spam-found notification when the batch flagged
// anything.
func (eng *Engine) SweepPending(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{}
	if !eng.Enabled() {
		return stats, nil
	}
	start := time.Now()
	defer func() {
		sweepDuration.Observe(time.Since(start).Seconds())
	}()
	// spam found before a paging error still gets announced
	defer eng.notifySpamFound(ctx, stats)

	for _, itemType := range []string{statestore.ItemTypePost, statestore.ItemTypeUser} {
		if err := eng.sweepType(ctx, itemType, stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (eng *Engine) sweepType(ctx context.Context, itemType string, stats *SweepStats) error {
	batch := eng.Config.BatchSize
	if batch <= 0 {
		batch = 50
	}
	var after uint
	for {
		recs, err := eng.States.Pending(ctx, itemType, after, batch)
		if err != nil {
			return fmt.Errorf("fetching pending items: %w", err)
		}
		if len(recs) == 0 {
			return nil
		}
		for _, rec := range recs {
			itemsSweptCount.WithLabelValues(itemType).Inc()
			stats.Swept++
			switch itemType {
			case statestore.ItemTypePost:
				eng.checkPost(ctx, rec, stats)
			case statestore.ItemTypeUser:
				eng.checkUserBio(ctx, rec, stats)
			}
		}
		after = recs[len(recs)-1].ID
	}
}

func (eng *Engine) notifySpamFound(ctx context.Context, stats *SweepStats) {
	if stats.SpamFound == 0 || eng.Notifier == nil {
		return
	}
	if err := eng.Notifier.SendSpamFound(ctx, stats.SpamFound); err != nil {
		eng.Logger.Error("sending spam-found notification", "err", err)
		return
	}
	spamNotifyCount.Inc()
}

// classify runs one attempt and folds failures into the retry budget. A nil
// payload means the item went stale before classification.
func (eng *Engine) classify(ctx context.Context, rec statestore.CheckRecord, cmt *akismet.Comment, log *slog.Logger) checkOutcome {
	spam, err := eng.Client.CommentCheck(ctx, cmt)
	if err != nil {
		classifierErrorCount.Inc()
		counterVal := fmt.Sprintf("%s/%d", rec.ItemType, rec.ItemID)
		if cerr := eng.Counters.Increment(ctx, failCounterName, counterVal); cerr != nil {
			log.Error("incrementing failure counter", "err", cerr)
		}
		fails, cerr := eng.Counters.GetCount(ctx, failCounterName, counterVal, countstore.PeriodTotal)
		if cerr != nil {
			log.Error("reading failure counter", "err", cerr)
		}
		log.Error("classifier check failed", "err", err, "failCount", fails)
		return checkOutcome{failed: true, failCount: fails}
	}
	// successful call clears the retry budget
	counterVal := fmt.Sprintf("%s/%d", rec.ItemType, rec.ItemID)
	if cerr := eng.Counters.Reset(ctx, failCounterName, counterVal); cerr != nil {
		log.Error("resetting failure counter", "err", cerr)
	}
	return checkOutcome{spam: spam}
}

func (eng *Engine) checkPost(ctx context.Context, rec statestore.CheckRecord, stats *SweepStats) {
	log := eng.Logger.With("itemType", rec.ItemType, "itemID", rec.ItemID)

	// an open case means a previous run already decided; just finish the
	// state transition. A resolved case does not block re-screening.
	mc, err := eng.Cases.GetByTarget(ctx, rec.ItemType, rec.ItemID)
	if err == nil && mc.Status == casestore.StatusOpen {
		if serr := eng.States.SetState(ctx, rec.ItemType, rec.ItemID, rec.UserID, statestore.StateNeedsReview, nil); serr != nil {
			log.Error("writing state", "err", serr)
		}
		return
	} else if err != nil && !errors.Is(err, casestore.ErrNotFound) {
		log.Error("looking up existing case", "err", err)
		stats.Errors++
		return
	}

	item, err := eng.Host.FetchItem(ctx, rec.ItemID)
	if err != nil {
		// host hiccup: leave in "new", retry next sweep
		log.Error("fetching item from host", "err", err)
		stats.Errors++
		return
	}

	var out checkOutcome
	var cmt *akismet.Comment
	if item == nil || item.AuthorDeleted {
		out = checkOutcome{stale: true}
	} else {
		cmt = BuildFeedback(item, &rec, &eng.Config)
		out = eng.classify(ctx, rec, cmt, log)
	}

	d := transition(out, &eng.Config)
	eng.apply(ctx, rec, item, cmt, d, stats, log)
}

func (eng *Engine) checkUserBio(ctx context.Context, rec statestore.CheckRecord, stats *SweepStats) {
	log := eng.Logger.With("itemType", rec.ItemType, "userID", rec.UserID)

	mc, err := eng.Cases.GetByTarget(ctx, rec.ItemType, rec.ItemID)
	if err == nil && mc.Status == casestore.StatusOpen {
		if serr := eng.States.SetState(ctx, rec.ItemType, rec.ItemID, rec.UserID, statestore.StateNeedsReview, nil); serr != nil {
			log.Error("writing state", "err", serr)
		}
		return
	} else if err != nil && !errors.Is(err, casestore.ErrNotFound) {
		log.Error("looking up existing case", "err", err)
		stats.Errors++
		return
	}

	profile, err := eng.Host.FetchUserProfile(ctx, rec.UserID)
	if err != nil {
		log.Error("fetching user profile from host", "err", err)
		stats.Errors++
		return
	}

	var out checkOutcome
	var cmt *akismet.Comment
	if profile == nil || profile.Bio == "" {
		out = checkOutcome{stale: true}
	} else {
		cmt = BuildUserFeedback(profile, &rec, &eng.Config)
		out = eng.classify(ctx, rec, cmt, log)
	}

	d := transition(out, &eng.Config)
	eng.applyUser(ctx, rec, cmt, d, stats, log)
}

// apply executes a post decision's side effects, then writes the state row.
// Every effect is safe to re-run if a crash forces a retry.
func (eng *Engine) apply(ctx context.Context, rec statestore.CheckRecord, item *ContentItem, cmt *akismet.Comment, d decision, stats *SweepStats, log *slog.Logger) {
	if d.stay {
		stats.Errors++
		return
	}

	if d.destroy {
		if err := eng.Host.DestroyContent(ctx, rec.ItemID); err != nil {
			log.Error("destroying content", "err", err)
			stats.Errors++
			return
		}
	}
	if d.notify {
		if err := eng.Host.NotifyAuthor(ctx, rec.UserID, rec.ItemID); err != nil {
			// non-fatal: the takedown already happened
			log.Error("notifying author", "err", err)
		}
	}
	if d.raiseCase {
		payload, err := json.Marshal(cmt)
		if err != nil {
			log.Error("encoding payload snapshot", "err", err)
		}
		snapshot := ""
		if item != nil {
			snapshot = item.Cooked
		}
		_, created, err := eng.Cases.CreateIfFresh(ctx, casestore.ModerationCase{
			TargetType: rec.ItemType,
			TargetID:   rec.ItemID,
			UserID:     rec.UserID,
			Payload:    string(payload),
			Score:      1.0,
			Reason:     "classifier verdict: spam",
			CreatedBy:  casestore.SystemActor,
		})
		if err != nil {
			log.Error("creating moderation case", "err", err)
			stats.Errors++
			return
		}
		if created {
			log.Warn("spam detected, case raised", "snapshotLen", len(snapshot))
		}
	}

	if err := eng.States.SetState(ctx, rec.ItemType, rec.ItemID, rec.UserID, d.next, nil); err != nil {
		log.Error("writing state", "err", err)
		stats.Errors++
		return
	}

	verdictCount.WithLabelValues(rec.ItemType, string(d.next)).Inc()
	switch d.next {
	case statestore.StateChecked:
		stats.Checked++
	case statestore.StateNeedsReview:
		stats.SpamFound++
	case statestore.StateSkipped:
		stats.Skipped++
	}
}

// applyUser mirrors apply for the bouncer pipeline: flag or clear the user
// instead of destroying content.
func (eng *Engine) applyUser(ctx context.Context, rec statestore.CheckRecord, cmt *akismet.Comment, d decision, stats *SweepStats, log *slog.Logger) {
	if d.stay {
		stats.Errors++
		return
	}

	if d.raiseCase {
		if err := eng.Host.FlagUser(ctx, rec.UserID, "profile flagged as spam"); err != nil {
			log.Error("flagging user", "err", err)
			stats.Errors++
			return
		}
		payload, err := json.Marshal(cmt)
		if err != nil {
			log.Error("encoding payload snapshot", "err", err)
		}
		_, _, err = eng.Cases.CreateIfFresh(ctx, casestore.ModerationCase{
			TargetType: rec.ItemType,
			TargetID:   rec.ItemID,
			UserID:     rec.UserID,
			Payload:    string(payload),
			Score:      1.0,
			Reason:     "classifier verdict: spam profile",
			CreatedBy:  casestore.SystemActor,
		})
		if err != nil {
			log.Error("creating moderation case", "err", err)
			stats.Errors++
			return
		}
	} else if d.next == statestore.StateChecked {
		if err := eng.Host.ClearUser(ctx, rec.UserID); err != nil {
			log.Error("clearing user", "err", err)
		}
	}

	if err := eng.States.SetState(ctx, rec.ItemType, rec.ItemID, rec.UserID, d.next, nil); err != nil {
		log.Error("writing state", "err", err)
		stats.Errors++
		return
	}

	verdictCount.WithLabelValues(rec.ItemType, string(d.next)).Inc()
	switch d.next {
	case statestore.StateChecked:
		stats.Checked++
	case statestore.StateNeedsReview:
		stats.SpamFound++
	case statestore.StateSkipped:
		stats.Skipped++
	}
}

func metadataFromStrings(ip, ua, ref string) *statestore.Metadata {
	meta := &statestore.Metadata{}
	if ip != "" {
		meta.IPAddress = &ip
	}
	if ua != "" {
		meta.UserAgent = &ua
	}
	if ref != "" {
		meta.Referrer = &ref
	}
	return meta
}
