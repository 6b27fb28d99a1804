package akismet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentCheck(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/comment-check", r.URL.Path)
		assert.NoError(r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		if r.PostForm.Get("comment_content") == "buy cheap pills" {
			w.Write([]byte("true"))
		} else {
			w.Write([]byte("false"))
		}
	}))
	defer srv.Close()

	c := NewClient("test-key", "https://forum.example.com", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))

	spam, err := c.CommentCheck(ctx, &Comment{
		CommentType: CommentTypeForumPost,
		Content:     "buy cheap pills",
		Author:      "spammer",
		UserIP:      "1.2.3.4",
	})
	assert.NoError(err)
	assert.True(spam)
	assert.Equal("test-key", gotForm["api_key"])
	assert.Equal("https://forum.example.com", gotForm["blog"])
	assert.Equal("forum-post", gotForm["comment_type"])
	assert.Equal("1.2.3.4", gotForm["user_ip"])

	spam, err = c.CommentCheck(ctx, &Comment{Content: "an ordinary reply"})
	assert.NoError(err)
	assert.False(spam)
}

func TestCommentCheckRejected(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-akismet-debug-help", "Empty \"blog\" value")
		w.Write([]byte("invalid"))
	}))
	defer srv.Close()

	c := NewClient("test-key", "", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.CommentCheck(ctx, &Comment{Content: "whatever"})
	assert.Error(err)
	assert.Contains(err.Error(), "Empty \"blog\" value")
}

func TestCommentCheckServerError(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("test-key", "https://forum.example.com", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.CommentCheck(ctx, &Comment{Content: "whatever"})
	assert.Error(err)
}

func TestSubmitFeedback(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("Thanks for making the web a better place."))
	}))
	defer srv.Close()

	c := NewClient("test-key", "https://forum.example.com", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))

	assert.NoError(c.SubmitFeedback(ctx, &Comment{Content: "spammy"}, FeedbackSpam))
	assert.Equal("/submit-spam", gotPath)

	assert.NoError(c.SubmitFeedback(ctx, &Comment{Content: "fine actually"}, FeedbackHam))
	assert.Equal("/submit-ham", gotPath)

	assert.Error(c.SubmitFeedback(ctx, &Comment{}, Feedback("bogus")))
}

func TestVerifyKey(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/verify-key", r.URL.Path)
		assert.NoError(r.ParseForm())
		if r.PostForm.Get("key") == "good-key" {
			w.Write([]byte("valid"))
		} else {
			w.Write([]byte("invalid"))
		}
	}))
	defer srv.Close()

	c := NewClient("good-key", "https://forum.example.com", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	ok, err := c.Verify(ctx)
	assert.NoError(err)
	assert.True(ok)

	c = NewClient("bad-key", "https://forum.example.com", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	ok, err = c.Verify(ctx)
	assert.NoError(err)
	assert.False(ok)
}
