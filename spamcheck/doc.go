// Spam screening engine for user-generated forum content.
//
// This package (`github.com/forumkit/spamsweep/spamcheck`) decides which posts and profile bios are worth submitting to the external content-reputation service, tracks each item through an explicit check-state machine (new, checked, needs_review, skipped), and acts on verdicts: removing spam, notifying the author, and raising a moderation case for human review. The host forum stays the system of record for posts and users; this package only keeps per-item check state, submission metadata, and case records.
//
// See `cmd/spamsweep` for the daemon built on this package.
package spamcheck
