package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/conn-castle/release-rust/internal/retry"
)

func fastPolicy() retry.Policy {
	p := retry.Network()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestIsVersionPublished(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/api/v1/crates/foo/1.0.0":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"version":{"num":"1.0.0"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.Policy = fastPolicy()
	assert.True(t, c.IsVersionPublished(context.Background(), "foo", "1.0.0"))
	assert.False(t, c.IsVersionPublished(context.Background(), "foo", "2.0.0"))
	assert.Equal(t, UserAgent, agent)
}

func TestIsVersionPublishedRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.Policy = fastPolicy()
	assert.True(t, c.IsVersionPublished(context.Background(), "foo", "1.0.0"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestIsVersionPublishedFailureMeansUnpublished(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.Policy = fastPolicy()
	assert.False(t, c.IsVersionPublished(context.Background(), "foo", "1.0.0"))
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")
}

func TestIsVersionPublishedUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, nil)
	c.Policy = fastPolicy()
	assert.False(t, c.IsVersionPublished(context.Background(), "foo", "1.0.0"))
}

func TestNewDefaultsURL(t *testing.T) {
	assert.Equal(t, DefaultURL, New("", nil).BaseURL)
}
