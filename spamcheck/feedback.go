package spamcheck

import (
	"github.com/forumkit/spamsweep/akismet"
	"github.com/forumkit/spamsweep/spamcheck/statestore"
)

// BuildFeedback assembles the classifier payload for a post from the item
// snapshot plus whatever submission metadata was stored with its check
// record. Pure transform; the optional cfg.PayloadHook runs last.
func BuildFeedback(item *ContentItem, rec *statestore.CheckRecord, cfg *Config) *akismet.Comment {
	content := item.Raw
	if item.FirstInTopic {
		content = item.TopicTitle + "\n\n" + content
	}
	cmt := &akismet.Comment{
		Blog:        cfg.BaseURL,
		CommentType: akismet.CommentTypeForumPost,
		Permalink:   cfg.BaseURL + item.URL,
		Author:      item.AuthorName,
		Content:     content,
	}
	if rec != nil {
		if rec.Referrer != nil {
			cmt.Referrer = *rec.Referrer
		}
		if rec.IPAddress != nil {
			cmt.UserIP = *rec.IPAddress
		}
		if rec.UserAgent != nil {
			cmt.UserAgent = *rec.UserAgent
		}
	}
	if cfg.TransmitEmail {
		cmt.AuthorEmail = item.AuthorEmail
	}
	if cfg.PayloadHook != nil {
		cfg.PayloadHook(cmt)
	}
	return cmt
}

// BuildUserFeedback is the bouncer counterpart: profile bio text submitted as
// a signup-type payload.
func BuildUserFeedback(profile *UserProfile, rec *statestore.CheckRecord, cfg *Config) *akismet.Comment {
	cmt := &akismet.Comment{
		Blog:        cfg.BaseURL,
		CommentType: akismet.CommentTypeSignup,
		Author:      profile.Username,
		Content:     profile.Bio,
	}
	if rec != nil {
		if rec.Referrer != nil {
			cmt.Referrer = *rec.Referrer
		}
		if rec.IPAddress != nil {
			cmt.UserIP = *rec.IPAddress
		}
		if rec.UserAgent != nil {
			cmt.UserAgent = *rec.UserAgent
		}
	}
	if cfg.TransmitEmail {
		cmt.AuthorEmail = profile.Email
	}
	if cfg.PayloadHook != nil {
		cfg.PayloadHook(cmt)
	}
	return cmt
}
