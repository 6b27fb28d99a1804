package casestore

import (
	"context"
	"errors"
	"time"
)

// Review status of a moderation case. Cases start open and are resolved by a
// moderator decision relayed from the host application.
type CaseStatus string

const (
	StatusOpen          CaseStatus = "open"
	StatusConfirmedSpam CaseStatus = "confirmed_spam"
	StatusConfirmedHam  CaseStatus = "confirmed_ham"
)

// Actor credited with raising the case. Automated detections are attributed
// to the system actor, never a real user.
const SystemActor = "system"

var ErrNotFound = errors.New("casestore: no such case")

// A moderation case raised for a spam verdict. TargetID is a weak reference:
// the underlying content is usually destroyed at detection time, so Payload
// keeps a snapshot of what the moderator needs to see.
type ModerationCase struct {
	ID         uint `gorm:"primarykey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	TargetType string `gorm:"index:idx_case_target,unique"`
	TargetID   int64  `gorm:"index:idx_case_target,unique"`
	UserID     int64  `gorm:"index"`
	Payload    string
	Score      float64
	Reason     string
	CreatedBy  string
	Status     CaseStatus `gorm:"index"`
}

type CaseStore interface {
	// CreateIfFresh raises a case for the target unless an open one already
	// exists. A previously resolved case is reopened with the new detection's
	// payload; only an open case suppresses. Returns the case and whether a
	// fresh detection was recorded; re-running a batch must not raise
	// duplicates.
	CreateIfFresh(ctx context.Context, mc ModerationCase) (*ModerationCase, bool, error)

	GetByTarget(ctx context.Context, targetType string, targetID int64) (*ModerationCase, error)

	// Resolve records the moderator's decision on an open case.
	Resolve(ctx context.Context, targetType string, targetID int64, status CaseStatus) error
}
