package spamcheck

import (
	"fmt"
)

// Inbound events from the host forum. Each event kind gets an explicit typed
// struct, validated at the boundary before any processing.

type ContentCreatedEvent struct {
	Item ContentItem `json:"item"`
	// submission context, captured once at creation time
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

func (e *ContentCreatedEvent) Validate() error {
	if e.Item.ID == 0 {
		return fmt.Errorf("content-created event missing item id")
	}
	if e.Item.UserID == 0 {
		return fmt.Errorf("content-created event missing author id")
	}
	return nil
}

// ModeratorDecisionEvent reports a human moderator's final call on an open
// case: confirmed spam, or overturned (ham).
type ModeratorDecisionEvent struct {
	TargetType    string `json:"target_type"`
	TargetID      int64  `json:"target_id"`
	ConfirmedSpam bool   `json:"confirmed_spam"`
}

func (e *ModeratorDecisionEvent) Validate() error {
	if e.TargetType == "" || e.TargetID == 0 {
		return fmt.Errorf("moderator-decision event missing target")
	}
	return nil
}

// UserAnonymizedEvent triggers the bulk IP rewrite for a user's stored
// metadata. An empty NewIP means "scrub to the null address".
type UserAnonymizedEvent struct {
	UserID int64  `json:"user_id"`
	NewIP  string `json:"new_ip,omitempty"`
}

func (e *UserAnonymizedEvent) Validate() error {
	if e.UserID == 0 {
		return fmt.Errorf("user-anonymized event missing user id")
	}
	return nil
}

// BioChangedEvent enqueues a profile-bio check. Previous carries the prior
// bio text so unchanged saves are ignored.
type BioChangedEvent struct {
	UserID    int64  `json:"user_id"`
	Bio       string `json:"bio"`
	Previous  string `json:"previous,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

func (e *BioChangedEvent) Validate() error {
	if e.UserID == 0 {
		return fmt.Errorf("bio-changed event missing user id")
	}
	return nil
}
