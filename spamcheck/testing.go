package spamcheck

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/forumkit/spamsweep/akismet"
	"github.com/forumkit/spamsweep/spamcheck/casestore"
	"github.com/forumkit/spamsweep/spamcheck/countstore"
	"github.com/forumkit/spamsweep/spamcheck/statestore"
)

// MockClassifier calls anything containing "spamword" spam, and fails any
// payload containing "flaky". Intentionally exported, for use in other
// packages' tests.
type MockClassifier struct {
	lk     sync.Mutex
	Checks int
	// Feedback verdicts received via SubmitFeedback, in order
	Feedback []akismet.Feedback
	// FailAll forces every CommentCheck to error
	FailAll bool
	// FailFeedback forces every SubmitFeedback to error
	FailFeedback bool
}

func (m *MockClassifier) CommentCheck(ctx context.Context, cmt *akismet.Comment) (bool, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.Checks++
	if m.FailAll || strings.Contains(cmt.Content, "flaky") {
		return false, fmt.Errorf("classifier unavailable: simulated timeout")
	}
	return strings.Contains(cmt.Content, "spamword"), nil
}

func (m *MockClassifier) SubmitFeedback(ctx context.Context, cmt *akismet.Comment, fb akismet.Feedback) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.FailFeedback {
		return fmt.Errorf("classifier unavailable: simulated timeout")
	}
	m.Feedback = append(m.Feedback, fb)
	return nil
}

// MockHost is an in-memory host forum: items and profiles registered up
// front, mutating calls recorded for assertions.
type MockHost struct {
	lk       sync.Mutex
	Items    map[int64]*ContentItem
	Profiles map[int64]*UserProfile

	Destroyed    []int64
	Notified     []int64
	FlaggedUsers []int64
	ClearedUsers []int64
}

func NewMockHost() *MockHost {
	return &MockHost{
		Items:    make(map[int64]*ContentItem),
		Profiles: make(map[int64]*UserProfile),
	}
}

func (h *MockHost) FetchItem(ctx context.Context, itemID int64) (*ContentItem, error) {
	h.lk.Lock()
	defer h.lk.Unlock()
	item, ok := h.Items[itemID]
	if !ok {
		return nil, nil
	}
	out := *item
	return &out, nil
}

func (h *MockHost) DestroyContent(ctx context.Context, itemID int64) error {
	h.lk.Lock()
	defer h.lk.Unlock()
	h.Destroyed = append(h.Destroyed, itemID)
	delete(h.Items, itemID)
	return nil
}

func (h *MockHost) NotifyAuthor(ctx context.Context, userID, itemID int64) error {
	h.lk.Lock()
	defer h.lk.Unlock()
	h.Notified = append(h.Notified, itemID)
	return nil
}

func (h *MockHost) FetchUserProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	h.lk.Lock()
	defer h.lk.Unlock()
	profile, ok := h.Profiles[userID]
	if !ok {
		return nil, nil
	}
	out := *profile
	return &out, nil
}

func (h *MockHost) FlagUser(ctx context.Context, userID int64, reason string) error {
	h.lk.Lock()
	defer h.lk.Unlock()
	h.FlaggedUsers = append(h.FlaggedUsers, userID)
	return nil
}

func (h *MockHost) ClearUser(ctx context.Context, userID int64) error {
	h.lk.Lock()
	defer h.lk.Unlock()
	h.ClearedUsers = append(h.ClearedUsers, userID)
	return nil
}

// CountNotifier records spam-found notifications.
type CountNotifier struct {
	Sent []int
}

func (n *CountNotifier) SendSpamFound(ctx context.Context, count int) error {
	n.Sent = append(n.Sent, count)
	return nil
}

// EngineTestFixture builds a fully in-memory engine wired to a mock host and
// classifier.
func EngineTestFixture() (*Engine, *MockHost, *MockClassifier, *CountNotifier) {
	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = "https://forum.example.com"

	host := NewMockHost()
	classifier := &MockClassifier{}
	notifier := &CountNotifier{}
	eng := &Engine{
		Logger:   slog.Default(),
		Config:   cfg,
		States:   statestore.NewMemStateStore(),
		Cases:    casestore.NewMemCaseStore(),
		Counters: countstore.NewMemCountStore(),
		Client:   classifier,
		Host:     host,
		Notifier: notifier,
	}
	return eng, host, classifier, notifier
}
