// Package devserver is the local development server: it serves the
// development build and the local CDN directory, proxies everything else to
// the real CDN, and adds the request hooks used while developing (permissive
// CORS, font regeneration and a status probe).
package devserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/scriptpack/internal/logger"
	"github.com/wolfeidau/scriptpack/internal/profile"
)

type Config struct {
	profile.DevServer

	// OutputDir holds the build output, served ahead of StaticDir.
	OutputDir string
	// Upstream reaches ProxyTarget. Defaults to NewUpstreamTransport.
	Upstream http.RoundTripper
	// Certificate is used when TLS is enabled.
	Certificate *tls.Certificate
}

type Server struct {
	cfg     Config
	handler http.Handler
}

func New(cfg Config) (*Server, error) {
	if cfg.StatusVersion == 0 {
		cfg.StatusVersion = ProtocolVersion
	}
	if cfg.StaticPublicPath == "" {
		cfg.StaticPublicPath = "/script/"
	}
	if cfg.Upstream == nil {
		cfg.Upstream = NewUpstreamTransport(nil, defaultMaxTries)
	}

	font, err := NewFontRegenerator(cfg.FontCommand)
	if err != nil {
		return nil, err
	}

	proxy, err := NewProxy(cfg.ProxyTarget, cfg.ChangeOrigin, cfg.Upstream)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /update_font", font)
	mux.Handle("GET /dev_server", statusHandler(cfg.StatusVersion))
	mux.Handle(cfg.StaticPublicPath, &layeredStatic{
		prefix: cfg.StaticPublicPath,
		dirs:   []string{cfg.OutputDir, cfg.StaticDir},
		next:   proxy,
	})
	mux.Handle("/", proxy)

	var handler http.Handler = mux
	if cfg.Compress {
		handler = gzhttp.GzipHandler(handler)
	}
	handler = PermissiveCORS()(handler)
	handler = AllowedHosts(cfg.AllowedHosts)(handler)
	handler = logger.NewHTTPRequests(log.Logger, ExtractClientIP).Wrap(handler)

	return &Server{cfg: cfg, handler: handler}, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := configureHTTPServer(s.cfg.Listen, s.handler)

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}

	if s.cfg.TLS {
		if s.cfg.Certificate == nil {
			ln.Close()
			return errors.New("TLS is enabled but no certificate was provided")
		}
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*s.cfg.Certificate},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", ln.Addr().String()).
			Bool("tls", s.cfg.TLS).
			Str("proxy", s.cfg.ProxyTarget).
			Msg("Starting dev server")
		if s.cfg.TLS {
			errCh <- srv.ServeTLS(ln, "", "")
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down dev server")
		return srv.Shutdown(shutdownCtx)
	}
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
