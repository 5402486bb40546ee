package devserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryTransport_retriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	rt := &retryTransport{next: http.DefaultTransport, maxTries: 3, initialInterval: time.Millisecond}

	req := httptest.NewRequest(http.MethodGet, upstream.URL, nil)
	req.RequestURI = ""
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryTransport_returnsLastResponse(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	rt := &retryTransport{next: http.DefaultTransport, maxTries: 2, initialInterval: time.Millisecond}

	req := httptest.NewRequest(http.MethodGet, upstream.URL, nil)
	req.RequestURI = ""
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryTransport_doesNotRetryWithBody(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	rt := &retryTransport{next: http.DefaultTransport, maxTries: 3, initialInterval: time.Millisecond}

	req := httptest.NewRequest(http.MethodPost, upstream.URL, strings.NewReader("payload"))
	req.RequestURI = ""
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUpstreamTransport_cachesResponses(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Cache-Control", "max-age=3600")
		_, _ = w.Write([]byte("emoji"))
	}))
	defer upstream.Close()

	client := &http.Client{Transport: NewUpstreamTransport(nil, 1)}

	for range 2 {
		resp, err := client.Get(upstream.URL + "/static/emoji.png")
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	assert.Equal(t, int32(1), calls.Load())
}

func TestNewProxy_invalidTarget(t *testing.T) {
	_, err := NewProxy("://bad", true, nil)
	require.Error(t, err)

	_, err = NewProxy("/relative", true, nil)
	require.Error(t, err)
}
