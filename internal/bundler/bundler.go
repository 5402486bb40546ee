// Package bundler runs a build profile through esbuild, either once or in
// watch mode, and keeps the metafile of the last build.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/scriptpack/internal/metafile"
	"github.com/wolfeidau/scriptpack/internal/profile"
	"github.com/wolfeidau/scriptpack/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrBuildFailed = errors.New("esbuild failed with errors")

// Pipeline builds a single profile.
type Pipeline struct {
	profile  *profile.Profile
	metadata *metafile.Metafile
	mu       sync.RWMutex
}

func New(p *profile.Profile) *Pipeline {
	return &Pipeline{profile: p}
}

func (p *Pipeline) Profile() *profile.Profile {
	return p.profile
}

func (p *Pipeline) OutputDir() string {
	return p.profile.Output.Path
}

// Build runs esbuild once.
func (p *Pipeline) Build(ctx context.Context) error {
	opts, err := Options(p.profile)
	if err != nil {
		return err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "bundler.Build",
		trace.WithAttributes(attribute.String("profile", p.profile.Name)))
	defer span.End()

	log.Info().
		Str("profile", p.profile.Name).
		Strs("entrypoints", p.profile.Entry.Names()).
		Strs("plugins", p.profile.PluginIDs()).
		Msg("Building assets")

	started := time.Now()
	result := api.Build(opts)
	if err := p.record(ctx, &result, started); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Watch builds, then rebuilds whenever a source file changes, until ctx is
// cancelled. Errors in individual rebuilds are logged.
func (p *Pipeline) Watch(ctx context.Context) error {
	opts, err := Options(p.profile)
	if err != nil {
		return err
	}

	var started time.Time
	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: "scriptpack-reporter",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				started = time.Now()
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				_ = p.record(ctx, result, started)
				return api.OnEndResult{}, nil
			})
		},
	})

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		for _, msg := range ctxErr.Errors {
			log.Error().Str("error", msg.Text).Msg("Build setup error")
		}
		return fmt.Errorf("failed to create build context: %w", ErrBuildFailed)
	}
	defer buildCtx.Dispose()

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to watch %s: %w", p.profile.RootDir, err)
	}

	log.Info().Str("profile", p.profile.Name).Str("root", p.profile.RootDir).Msg("Watching for changes")

	<-ctx.Done()
	return nil
}

// Outputs lists the files emitted by the last build, relative to the output
// directory.
func (p *Pipeline) Outputs() ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, errors.New("assets not built yet, call Build() first")
	}

	prefix, err := filepath.Rel(p.profile.RootDir, p.OutputDir())
	if err != nil {
		return nil, err
	}

	outputs := make([]string, 0, len(p.metadata.Outputs))
	for _, outPath := range p.metadata.OutputPaths() {
		rel, err := filepath.Rel(prefix, filepath.FromSlash(outPath))
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, filepath.ToSlash(rel))
	}
	return outputs, nil
}

func (p *Pipeline) record(ctx context.Context, result *api.BuildResult, started time.Time) error {
	duration := time.Since(started)
	metrics := telemetry.GetMetrics()
	attrs := telemetry.ProfileAttributes(p.profile.Name)

	metrics.BuildsTotal.Add(ctx, 1, attrs)
	metrics.BuildDuration.Record(ctx, float64(duration.Milliseconds()), attrs)

	for _, msg := range result.Warnings {
		log.Warn().Str("warning", msg.Text).Str("file", location(msg)).Msg("Build warning")
	}

	if len(result.Errors) > 0 {
		metrics.BuildErrorsTotal.Add(ctx, 1, attrs)
		for _, msg := range result.Errors {
			log.Error().Str("error", msg.Text).Str("file", location(msg)).Msg("Build error")
		}
		return ErrBuildFailed
	}

	for _, file := range result.OutputFiles {
		log.Debug().Str("file", file.Path).Msg("Built file")
	}

	metadata, err := metafile.Parse(result.Metafile)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.metadata = metadata
	p.mu.Unlock()

	log.Info().
		Str("profile", p.profile.Name).
		Dur("duration", duration).
		Int("outputs", len(metadata.Outputs)).
		Int("bytes", metadata.TotalBytes()).
		Msg("Build complete")
	return nil
}

func location(msg api.Message) string {
	if msg.Location == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", msg.Location.File, msg.Location.Line, msg.Location.Column)
}
