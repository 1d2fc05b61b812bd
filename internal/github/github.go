// Package github wraps the GitHub releases API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/conn-castle/release-rust/internal/messages"
)

// DefaultAPIURL is the public GitHub API root.
const DefaultAPIURL = "https://api.github.com"

// StatusError carries the HTTP status of a failed API call.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(messages.GitHubStatusFmt, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the call may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// NewRelease describes a release to create.
type NewRelease struct {
	Tag        string
	Name       string
	Body       string
	Prerelease bool
	Latest     bool
}

// Options configures a Client.
type Options struct {
	Token string
	// Repository is "owner/name".
	Repository string
	// APIURL overrides the API root, for GitHub Enterprise or tests.
	APIURL string
	// UploadURL overrides the upload root; empty reuses APIURL.
	UploadURL string
	// HTTPClient is used when Token is empty.
	HTTPClient *http.Client
}

// Client talks to one repository's releases.
type Client struct {
	api   *gh.Client
	owner string
	repo  string
}

// New builds a client for opts.Repository.
func New(ctx context.Context, opts Options) (*Client, error) {
	owner, repo, ok := strings.Cut(opts.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf(messages.GitHubRepositoryInvalidFmt, opts.Repository)
	}

	httpClient := opts.HTTPClient
	if opts.Token != "" {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	}
	api := gh.NewClient(httpClient)

	if opts.APIURL != "" && strings.TrimSuffix(opts.APIURL, "/") != DefaultAPIURL {
		base, err := withSlash(opts.APIURL)
		if err != nil {
			return nil, err
		}
		upload := uploadFor(base)
		if opts.UploadURL != "" {
			if upload, err = withSlash(opts.UploadURL); err != nil {
				return nil, err
			}
		}
		api.BaseURL = base
		api.UploadURL = upload
	}
	return &Client{api: api, owner: owner, repo: repo}, nil
}

// uploadFor derives the uploads root of a GitHub Enterprise API root
// (".../api/v3/" becomes ".../api/uploads/"); other roots serve both.
func uploadFor(base *url.URL) *url.URL {
	u := *base
	if strings.HasSuffix(u.Path, "/api/v3/") {
		u.Path = strings.TrimSuffix(u.Path, "v3/") + "uploads/"
	}
	return &u
}

func withSlash(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf(messages.GitHubURLInvalidFmt, raw, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// ReleaseByTag returns the id of the release for tag. found is false when
// the API answers 404.
func (c *Client) ReleaseByTag(ctx context.Context, tag string) (id int64, found bool, err error) {
	rel, resp, err := c.api.Repositories.GetReleaseByTag(ctx, c.owner, c.repo, tag)
	if err != nil {
		se := statusError(resp, err)
		if IsNotFound(se) {
			return 0, false, nil
		}
		return 0, false, se
	}
	return rel.GetID(), true, nil
}

// CreateRelease creates a published (non-draft) release and returns its id.
func (c *Client) CreateRelease(ctx context.Context, r NewRelease) (int64, error) {
	latest := "false"
	if r.Latest {
		latest = "true"
	}
	rel, resp, err := c.api.Repositories.CreateRelease(ctx, c.owner, c.repo, &gh.RepositoryRelease{
		TagName:    ptr(r.Tag),
		Name:       ptr(r.Name),
		Body:       ptr(r.Body),
		Draft:      ptr(false),
		Prerelease: ptr(r.Prerelease),
		MakeLatest: ptr(latest),
	})
	if err != nil {
		return 0, statusError(resp, err)
	}
	return rel.GetID(), nil
}

// UploadAsset uploads the file at path to the release, named after its base name.
func (c *Client) UploadAsset(ctx context.Context, releaseID int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, resp, err := c.api.Repositories.UploadReleaseAsset(ctx, c.owner, c.repo, releaseID,
		&gh.UploadOptions{Name: filepath.Base(path)}, f)
	if err != nil {
		return statusError(resp, err)
	}
	return nil
}

func statusError(resp *gh.Response, err error) *StatusError {
	se := &StatusError{Err: err}
	var errResp *gh.ErrorResponse
	switch {
	case resp != nil && resp.Response != nil:
		se.StatusCode = resp.StatusCode
	case errors.As(err, &errResp) && errResp.Response != nil:
		se.StatusCode = errResp.Response.StatusCode
	}
	return se
}

func ptr[T any](v T) *T {
	return &v
}
