// Package hostapi implements the spamcheck.HostClient contract against the
// host forum's internal HTTP API.
package hostapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/forumkit/spamsweep/internal/robusthttp"
	"github.com/forumkit/spamsweep/spamcheck"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

var _ spamcheck.HostClient = (*Client)(nil)

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: robusthttp.NewClient(15 * time.Second),
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// WithHTTPClient swaps the underlying HTTP client. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("host api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("host api %s %s failed. status=%d", method, path, resp.StatusCode)
	}
	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("host api %s %s response: %w", method, path, err)
		}
	}
	return nil
}

var errNotFound = fmt.Errorf("host api: not found")

func (c *Client) FetchItem(ctx context.Context, itemID int64) (*spamcheck.ContentItem, error) {
	var item spamcheck.ContentItem
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/internal/items/%d", itemID), nil, &item)
	if err == errNotFound {
		// post or topic gone; stale, not an error
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DestroyContent(ctx context.Context, itemID int64) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/internal/items/%d", itemID), nil, nil)
	if err == errNotFound {
		// already gone; destroy is idempotent
		return nil
	}
	return err
}

func (c *Client) NotifyAuthor(ctx context.Context, userID, itemID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/internal/users/%d/notify", userID), map[string]int64{"item_id": itemID}, nil)
}

func (c *Client) FetchUserProfile(ctx context.Context, userID int64) (*spamcheck.UserProfile, error) {
	var profile spamcheck.UserProfile
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/internal/users/%d/profile", userID), nil, &profile)
	if err == errNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) FlagUser(ctx context.Context, userID int64, reason string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/internal/users/%d/flag", userID), map[string]string{"reason": reason}, nil)
}

func (c *Client) ClearUser(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/internal/users/%d/clear", userID), nil, nil)
}
