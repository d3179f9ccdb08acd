package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialrelay/internal/logging"
	"socialrelay/internal/model"
)

func newTestClient(attempts int) *Client {
	return New("test", Options{
		MaxAttempts: attempts,
		BaseBackoff: 10 * time.Millisecond,
		Logger:      logging.Discard(),
	})
}

func TestDoWithRetryHandles429(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	c := newTestClient(3)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/test", nil)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestRetryResendsBody(t *testing.T) {
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := new(strings.Builder)
		_, _ = io.Copy(b, r.Body)
		bodies = append(bodies, b.String())
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	c := newTestClient(2)
	req, _ := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, c.DoJSON(context.Background(), req, nil))
	assert.Equal(t, []string{`{"text":"hi"}`, `{"text":"hi"}`}, bodies)
}

func TestSingleAttemptDoesNotRetry(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"title":"Service Unavailable"}`))
	}))
	defer ts.Close()

	c := newTestClient(1)
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	_, err := c.Do(context.Background(), req)

	var ue *model.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusServiceUnavailable, ue.Status)
	assert.Equal(t, "test", ue.Service)
	assert.Contains(t, ue.Body, "Service Unavailable")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestDoJSONDecodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"7"}`))
	}))
	defer ts.Close()

	var out struct {
		ID string `json:"id"`
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, newTestClient(1).DoJSON(context.Background(), req, &out))
	assert.Equal(t, "7", out.ID)
}

func TestRetryAfterParsing(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3", time.Second))
	assert.Equal(t, time.Second, retryAfter("", time.Second))
	assert.Equal(t, time.Second, retryAfter("garbage", time.Second))
}

func TestNewLimiterDisabledWhenRPSZero(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow())
	}
	assert.Equal(t, 1, NewLimiter(1, 0).Burst())
}

type stampTransport struct{ n atomic.Int32 }

func (s *stampTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r2 := r.Clone(r.Context())
	r2.Header.Set("Authorization", fmt.Sprintf("stamp-%d", s.n.Add(1)))
	return http.DefaultTransport.RoundTrip(r2)
}

func TestWithTransportRunsEachAttempt(t *testing.T) {
	var seen []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		if len(seen) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	base := newTestClient(2)
	c := base.WithTransport(&stampTransport{})
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, c.DoJSON(context.Background(), req, nil))
	assert.Equal(t, []string{"stamp-1", "stamp-2"}, seen)
	assert.Equal(t, base.Service(), c.Service())
}
