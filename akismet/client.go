package akismet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"golang.org/x/time/rate"

	"github.com/forumkit/spamsweep/internal/robusthttp"
)

const defaultEndpoint = "https://rest.akismet.com/1.1"

// Verdicts reported back to the service to improve future classification.
type Feedback string

const (
	FeedbackSpam Feedback = "spam"
	FeedbackHam  Feedback = "ham"
)

// Client speaks the Akismet REST protocol: comment-check plus the two
// submit-feedback operations. All calls are form-encoded POSTs authenticated
// with the API key and the registered site URL.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	endpoint   string
	apiKey     string
	blogURL    string
}

type Option func(*Client)

// WithEndpoint overrides the service base URL. Used by tests against httptest
// servers.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimSuffix(endpoint, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter bounds outbound request rate across all operations.
func WithLimiter(lim *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = lim
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(apiKey, blogURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: robusthttp.NewClient(30 * time.Second),
		logger:     slog.Default().With("subsystem", "akismet"),
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
		blogURL:    blogURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) post(ctx context.Context, op string, vals url.Values) (string, http.Header, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+op, strings.NewReader(vals.Encode()))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("akismet %s request: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", nil, fmt.Errorf("akismet %s response: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("akismet %s failed. status=%d", op, resp.StatusCode)
	}
	return strings.TrimSpace(string(raw)), resp.Header, nil
}

func (c *Client) postComment(ctx context.Context, op string, cmt *Comment) (string, http.Header, error) {
	vals, err := query.Values(cmt)
	if err != nil {
		return "", nil, fmt.Errorf("encoding comment payload: %w", err)
	}
	vals.Set("api_key", c.apiKey)
	if vals.Get("blog") == "" {
		vals.Set("blog", c.blogURL)
	}
	return c.post(ctx, op, vals)
}

// Verify checks the API key against the service. Returns false (without
// error) when the service answers but rejects the key.
func (c *Client) Verify(ctx context.Context) (bool, error) {
	vals := url.Values{}
	vals.Set("key", c.apiKey)
	vals.Set("blog", c.blogURL)
	out, _, err := c.post(ctx, "verify-key", vals)
	if err != nil {
		return false, err
	}
	return out == "valid", nil
}

// CommentCheck classifies a single payload. Returns true when the service
// calls it spam. Transport and protocol failures surface as errors; the
// caller decides retry semantics.
func (c *Client) CommentCheck(ctx context.Context, cmt *Comment) (bool, error) {
	out, hdr, err := c.postComment(ctx, "comment-check", cmt)
	if err != nil {
		return false, err
	}
	switch out {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		if help := hdr.Get("X-akismet-debug-help"); help != "" {
			return false, fmt.Errorf("akismet comment-check rejected: %s", help)
		}
		return false, fmt.Errorf("akismet comment-check unexpected response: %q", out)
	}
}

// SubmitFeedback reports a confirmed moderator decision back to the service.
// The response body is an acknowledgement and is ignored.
func (c *Client) SubmitFeedback(ctx context.Context, cmt *Comment, fb Feedback) error {
	var op string
	switch fb {
	case FeedbackSpam:
		op = "submit-spam"
	case FeedbackHam:
		op = "submit-ham"
	default:
		return fmt.Errorf("unknown feedback verdict: %s", fb)
	}
	_, _, err := c.postComment(ctx, op, cmt)
	if err != nil {
		return err
	}
	c.logger.Debug("submitted classifier feedback", "verdict", fb)
	return nil
}
