package instancemeta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/viewlineage/internal/testutil"
)

func newTestResolver(t *testing.T, endpoint string) *Resolver {
	t.Helper()
	return NewResolver(Options{
		Endpoint:    endpoint,
		BackoffBase: time.Millisecond,
		ReadTimeout: 200 * time.Millisecond,
		Logger:      testutil.NewTestLogger(t),
	})
}

func TestResolver_Region(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"accountId":"123456789012","region":"eu-west-1","instanceId":"i-0abc"}`))
	}))
	defer srv.Close()

	region, err := newTestResolver(t, srv.URL).Region(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", region)
}

func TestResolver_Region_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"region":"us-east-2"}`))
	}))
	defer srv.Close()

	region, err := newTestResolver(t, srv.URL).Region(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "us-east-2", region)
	assert.Equal(t, int32(3), calls.Load())
}

func TestResolver_Region_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestResolver(t, srv.URL).Region(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1+DefaultMaxRetries), calls.Load())
}

func TestResolver_Region_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := newTestResolver(t, endpoint).Region(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve region")
}

func TestResolver_Region_ReadTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	resolver := NewResolver(Options{
		Endpoint:    srv.URL,
		ReadTimeout: 20 * time.Millisecond,
		MaxRetries:  Retries(1),
		BackoffBase: time.Millisecond,
	})

	_, err := resolver.Region(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolver_Region_StalledBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"region":`))
		w.(http.Flusher).Flush()
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	resolver := NewResolver(Options{
		Endpoint:    srv.URL,
		ReadTimeout: 100 * time.Millisecond,
		MaxRetries:  Retries(1),
		BackoffBase: time.Millisecond,
	})

	start := time.Now()
	_, err := resolver.Region(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read timed out")
	assert.Equal(t, int32(2), calls.Load())
	assert.Less(t, elapsed, time.Second)
}

func TestResolver_Region_NoRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	resolver := NewResolver(Options{Endpoint: srv.URL, MaxRetries: Retries(0)})

	_, err := resolver.Region(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolver_Region_NotRetried(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: "404"},
		{name: "malformed document", status: http.StatusOK, body: "<html>", wantErr: "invalid identity document"},
		{name: "missing region", status: http.StatusOK, body: `{"instanceId":"i-0abc"}`, wantErr: "has no region"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestResolver(t, srv.URL).Region(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestNewResolver_Defaults(t *testing.T) {
	r := NewResolver(Options{})

	assert.Equal(t, DefaultEndpoint, r.endpoint)
	assert.Equal(t, uint64(DefaultMaxRetries), r.maxRetries)
	assert.Equal(t, DefaultBackoffBase, r.backoffBase)

	transport, ok := r.client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, DefaultReadTimeout, transport.ResponseHeaderTimeout)
}
