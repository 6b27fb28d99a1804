package spamcheck

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Content shorter than this (after trimming) is never worth a classifier
// call.
const MinContentLength = 20

// Freshly promoted users at this trust level get their first post checked
// regardless of the other skip rules.
const scrutinyTrustLevel = 1

// ShouldCheck decides whether a content item is submitted for classification.
// Pure function of the item and config; rules are evaluated in order and the
// first match decides.
func ShouldCheck(item *ContentItem, cfg *Config) bool {
	if item == nil || !cfg.Enabled || item.TopicPrivate {
		return false
	}
	text := strings.TrimSpace(item.Raw)
	if utf8.RuneCountInString(text) < MinContentLength {
		return false
	}
	if NeedsScrutiny(item) {
		return true
	}
	if item.AuthorTrustLevel >= cfg.SkipTrustLevel {
		return false
	}
	if item.AuthorPostCount > cfg.SkipPostCount {
		return false
	}
	// whole-content links are already rate-limited upstream, not extra signal
	if isBareURI(text) {
		return false
	}
	return true
}

// NeedsScrutiny reports whether a freshly created item warrants an immediate
// classifier check instead of waiting for the next sweep: the first item from
// a newly promoted low-trust author.
func NeedsScrutiny(item *ContentItem) bool {
	return item.AuthorTrustLevel == scrutinyTrustLevel && item.AuthorPostCount == 0
}

// isBareURI reports whether the entire text is a single well-formed absolute
// URI. Parse failures mean "not a URI".
func isBareURI(text string) bool {
	// characters never valid in a URI; url.Parse is too lenient about these
	if strings.ContainsAny(text, " \t\r\n<>\"") {
		return false
	}
	u, err := url.Parse(text)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
