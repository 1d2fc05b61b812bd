// Package registry asks a crates.io compatible registry whether a crate
// version is already published.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/retry"
)

// DefaultURL is the crates.io API root.
const DefaultURL = "https://crates.io"

// UserAgent identifies the client to the registry, which rejects anonymous requests.
const UserAgent = "release-rust (github.com/conn-castle/release-rust)"

// StatusError is a non-200, non-404 answer from the registry.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(messages.RegistryStatusFmt, e.Status)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client queries the registry API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Policy  retry.Policy
	Log     *zap.Logger
}

// New returns a client for baseURL with the network retry policy.
func New(baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Policy:  retry.Network(),
		Log:     log,
	}
}

// IsVersionPublished reports whether name@version exists on the registry.
// Any failure to get an answer counts as not published.
func (c *Client) IsVersionPublished(ctx context.Context, name, version string) bool {
	published, err := c.lookup(ctx, name, version)
	if err != nil {
		c.logger().Warn("registry lookup failed; assuming unpublished",
			zap.String("crate", name), zap.String("version", version), zap.Error(err))
		return false
	}
	return published
}

func (c *Client) lookup(ctx context.Context, name, version string) (bool, error) {
	endpoint := strings.TrimSuffix(c.BaseURL, "/") + "/api/v1/crates/" + url.PathEscape(name) + "/" + url.PathEscape(version)
	published := false
	_, err := c.Policy.Do(ctx, func(ctx context.Context, _ int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf(messages.RegistryCreateRequestFmt, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", UserAgent)

		resp, err := c.httpClient().Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			published = true
			return nil
		case http.StatusNotFound:
			published = false
			return nil
		default:
			return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
	})
	return published, err
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
