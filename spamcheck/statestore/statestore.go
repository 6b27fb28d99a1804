package statestore

import (
	"context"
	"errors"
	"time"
)

// Check states for a tracked content item. Transitions are forward-only: an
// item leaves "new" exactly once, and only a fresh submission re-creates a
// "new" row for the same item.
type CheckState string

const (
	StateNew         CheckState = "new"
	StateChecked     CheckState = "checked"
	StateNeedsReview CheckState = "needs_review"
	StateSkipped     CheckState = "skipped"
)

// Item types tracked by the store. Posts and user profiles share the same
// state machine but are swept separately.
const (
	ItemTypePost = "post"
	ItemTypeUser = "user"
)

var ErrNotFound = errors.New("statestore: no check record for item")

// Optional submission metadata. Nil fields are "not supplied" and leave any
// previously stored value untouched; non-nil fields overwrite.
type Metadata struct {
	IPAddress *string
	UserAgent *string
	Referrer  *string
}

// One row of check state per (ItemType, ItemID) pair.
type CheckRecord struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	ItemType  string     `gorm:"index:idx_check_item,unique"`
	ItemID    int64      `gorm:"index:idx_check_item,unique"`
	UserID    int64      `gorm:"index"`
	State     CheckState `gorm:"index"`
	IPAddress *string
	UserAgent *string
	Referrer  *string
}

type StateStore interface {
	// SetState upserts the check state for an item, applying partial metadata
	// updates (nil metadata fields keep their stored values).
	SetState(ctx context.Context, itemType string, itemID, userID int64, state CheckState, meta *Metadata) error

	GetRecord(ctx context.Context, itemType string, itemID int64) (*CheckRecord, error)

	// Pending returns up to limit records still in the "new" state with row ID
	// greater than afterID, oldest first. Keyset paging keeps a sweep
	// restartable and stops a failed check (which stays "new") from being
	// re-fetched within the same pass.
	Pending(ctx context.Context, itemType string, afterID uint, limit int) ([]CheckRecord, error)

	// AnonymizeUser rewrites the stored IP address on every record owned by
	// the user, in one bulk write. Returns the number of rows touched.
	AnonymizeUser(ctx context.Context, userID int64, newIP string) (int64, error)
}
