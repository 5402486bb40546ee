package commands

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/scriptpack/internal/logger"
	"github.com/wolfeidau/scriptpack/internal/profile"
	"github.com/wolfeidau/scriptpack/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Version string
}

// setup installs the global logger and, when tracing is on, the telemetry
// providers. The returned func flushes telemetry.
func setup(ctx context.Context, globals *Globals, tracing bool) func() {
	log.Logger = logger.Setup(globals.Debug)

	if !tracing {
		return func() {}
	}

	log.Info().Msg("Tracing is enabled")
	shutdown, err := telemetry.Init(ctx, "scriptpack", globals.Version, 10*time.Second)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

// selectProfiles validates names, defaulting to every profile.
func selectProfiles(names []string) ([]string, error) {
	if len(names) == 0 {
		return profile.Names, nil
	}

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !slices.Contains(profile.Names, name) {
			return nil, fmt.Errorf("%w %q (valid: %v)", profile.ErrUnknownProfile, name, profile.Names)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}
