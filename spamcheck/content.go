package spamcheck

import (
	"context"
)

// ContentItem is a snapshot of a forum post plus enough author and topic
// context to evaluate eligibility and build a classifier payload. The host
// application owns the canonical rows; this is a read-side copy.
type ContentItem struct {
	ID      int64 `json:"id"`
	UserID  int64 `json:"user_id"`
	TopicID int64 `json:"topic_id,omitempty"`
	// Raw is the author's original markup; Cooked is the rendered form shown
	// to readers and snapshotted into moderation cases.
	Raw    string `json:"raw"`
	Cooked string `json:"cooked,omitempty"`
	// URL is the item's path relative to the forum base URL.
	URL          string `json:"url,omitempty"`
	TopicTitle   string `json:"topic_title,omitempty"`
	TopicPrivate bool   `json:"topic_private,omitempty"`
	FirstInTopic bool   `json:"first_in_topic,omitempty"`

	AuthorName       string `json:"author_name,omitempty"`
	AuthorEmail      string `json:"author_email,omitempty"`
	AuthorTrustLevel int    `json:"author_trust_level"`
	AuthorPostCount  int64  `json:"author_post_count"`
	AuthorDeleted    bool   `json:"author_deleted,omitempty"`
}

// UserProfile carries the profile fields screened by the bouncer pipeline.
type UserProfile struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	Bio        string `json:"bio"`
	TrustLevel int    `json:"trust_level"`
	PostCount  int64  `json:"post_count"`
}

// HostClient is the contract with the host forum application. All mutating
// operations must be idempotent on the host side: the sweep runs under
// at-least-once delivery and may re-issue a call after a crash.
type HostClient interface {
	// FetchItem returns the current item snapshot, or nil (no error) when the
	// post or its owning topic no longer exists.
	FetchItem(ctx context.Context, itemID int64) (*ContentItem, error)

	// DestroyContent removes the post from the forum.
	DestroyContent(ctx context.Context, itemID int64) error

	// NotifyAuthor sends the author the designed "your content was removed"
	// message.
	NotifyAuthor(ctx context.Context, userID, itemID int64) error

	// FetchUserProfile returns the user's profile, or nil (no error) when the
	// user no longer exists.
	FetchUserProfile(ctx context.Context, userID int64) (*UserProfile, error)

	// FlagUser holds the user for moderator review.
	FlagUser(ctx context.Context, userID int64, reason string) error

	// ClearUser releases a previously flagged user.
	ClearUser(ctx context.Context, userID int64) error
}
