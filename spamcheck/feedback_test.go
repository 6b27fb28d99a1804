package spamcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forumkit/spamsweep/akismet"
	"github.com/forumkit/spamsweep/spamcheck/statestore"
)

func TestBuildFeedback(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.BaseURL = "https://forum.example.com"

	item := &ContentItem{
		ID:          42,
		UserID:      100,
		Raw:         "come visit my site for great deals",
		URL:         "/t/topic-slug/10/42",
		TopicTitle:  "Great deals",
		AuthorName:  "dealer",
		AuthorEmail: "dealer@example.com",
	}
	ip := "1.2.3.4"
	ua := "Mozilla/5.0"
	ref := "https://referrer.example.com"
	rec := &statestore.CheckRecord{IPAddress: &ip, UserAgent: &ua, Referrer: &ref}

	cmt := BuildFeedback(item, rec, &cfg)
	assert.Equal("https://forum.example.com", cmt.Blog)
	assert.Equal(akismet.CommentTypeForumPost, cmt.CommentType)
	assert.Equal("https://forum.example.com/t/topic-slug/10/42", cmt.Permalink)
	assert.Equal("come visit my site for great deals", cmt.Content)
	assert.Equal("dealer", cmt.Author)
	assert.Equal("1.2.3.4", cmt.UserIP)
	assert.Equal("Mozilla/5.0", cmt.UserAgent)
	assert.Equal("https://referrer.example.com", cmt.Referrer)
	// email withheld unless explicitly enabled
	assert.Empty(cmt.AuthorEmail)

	cfg.TransmitEmail = true
	cmt = BuildFeedback(item, rec, &cfg)
	assert.Equal("dealer@example.com", cmt.AuthorEmail)
}

func TestBuildFeedbackFirstInTopic(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	item := &ContentItem{
		Raw:          "body of the opening post",
		TopicTitle:   "Topic title here",
		FirstInTopic: true,
	}
	cmt := BuildFeedback(item, nil, &cfg)
	assert.Equal("Topic title here\n\nbody of the opening post", cmt.Content)

	item.FirstInTopic = false
	cmt = BuildFeedback(item, nil, &cfg)
	assert.Equal("body of the opening post", cmt.Content)
}

func TestBuildFeedbackPayloadHook(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.PayloadHook = func(cmt *akismet.Comment) {
		cmt.Content = "munged"
	}
	cmt := BuildFeedback(&ContentItem{Raw: "original"}, nil, &cfg)
	assert.Equal("munged", cmt.Content)
}

func TestBuildUserFeedback(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	cfg.BaseURL = "https://forum.example.com"
	profile := &UserProfile{
		UserID:   100,
		Username: "newuser",
		Email:    "newuser@example.com",
		Bio:      "check out my telegram channel",
	}
	ip := "5.6.7.8"
	rec := &statestore.CheckRecord{IPAddress: &ip}

	cmt := BuildUserFeedback(profile, rec, &cfg)
	assert.Equal(akismet.CommentTypeSignup, cmt.CommentType)
	assert.Equal("newuser", cmt.Author)
	assert.Equal("check out my telegram channel", cmt.Content)
	assert.Equal("5.6.7.8", cmt.UserIP)
	assert.Empty(cmt.AuthorEmail)
}
