package devserver

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/scriptpack/internal/telemetry"
)

const defaultMaxTries = 3

// NewUpstreamTransport returns the transport used to reach the CDN: an
// in-memory HTTP cache in front of a retrying transport.
func NewUpstreamTransport(next http.RoundTripper, maxTries uint) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if maxTries == 0 {
		maxTries = defaultMaxTries
	}

	cache := httpcache.NewMemoryCacheTransport()
	cache.Transport = &retryTransport{next: next, maxTries: maxTries, initialInterval: 100 * time.Millisecond}
	cache.MarkCachedResponses = true
	return cache
}

// NewProxy forwards requests to target. With changeOrigin the outgoing Host
// header is the target's, otherwise the client's Host is kept.
func NewProxy(target string, changeOrigin bool, transport http.RoundTripper) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy target %q: %w", target, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q: scheme and host are required", target)
	}

	metrics := telemetry.GetMetrics()

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			metrics.ProxyRequestsTotal.Add(pr.In.Context(), 1)
			pr.SetURL(u)
			if !changeOrigin {
				pr.Out.Host = pr.In.Host
			}
			pr.SetXForwarded()
		},
		Transport: transport,
		ModifyResponse: func(resp *http.Response) error {
			// set by the CORS middleware already
			resp.Header.Del("Access-Control-Allow-Origin")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error().Err(err).Str("path", r.URL.Path).Str("target", target).Msg("Proxy request failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}, nil
}

type retryTransport struct {
	next            http.RoundTripper
	maxTries        uint
	initialInterval time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !retryable(req) {
		return t.next.RoundTrip(req)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.initialInterval

	attempt := 0
	return backoff.Retry(req.Context(), func() (*http.Response, error) {
		attempt++
		if attempt > 1 {
			telemetry.GetMetrics().ProxyRetriesTotal.Add(req.Context(), 1)
		}

		resp, err := t.next.RoundTrip(req)
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Str("url", req.URL.String()).Msg("Upstream request failed")
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			if uint(attempt) >= t.maxTries {
				return resp, nil
			}
			resp.Body.Close()
			return nil, fmt.Errorf("upstream returned %s", resp.Status)
		}
		return resp, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(t.maxTries))
}

func retryable(req *http.Request) bool {
	if req.Body != nil && req.Body != http.NoBody {
		return false
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
