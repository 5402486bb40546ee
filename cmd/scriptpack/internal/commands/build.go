package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/scriptpack/internal/buildenv"
	"github.com/wolfeidau/scriptpack/internal/bundler"
	"github.com/wolfeidau/scriptpack/internal/profile"
)

type BuildCmd struct {
	Profiles []string `name:"profile" short:"p" help:"profile to build, repeatable (default: all)" env:"SCRIPTPACK_PROFILE"`
	Root     string   `help:"project root directory" default:"." env:"SCRIPTPACK_ROOT" type:"path"`
	Tracing  bool     `help:"enable tracing" default:"false" env:"SCRIPTPACK_TRACING"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	shutdown := setup(ctx, globals, c.Tracing)
	defer shutdown()

	names, err := selectProfiles(c.Profiles)
	if err != nil {
		return err
	}

	profiles, err := resolveProfiles(ctx, c.Root, names)
	if err != nil {
		return err
	}

	for _, p := range profiles {
		pipeline := bundler.New(p)
		if err := pipeline.Build(ctx); err != nil {
			return fmt.Errorf("failed to build profile %s: %w", p.Name, err)
		}

		outputs, err := pipeline.Outputs()
		if err != nil {
			return err
		}
		log.Info().Str("profile", p.Name).Str("dir", pipeline.OutputDir()).Strs("files", outputs).Msg("Built profile")
	}

	return nil
}

// resolveProfiles loads the environment and builds the named profiles. The
// commit is only looked up when prod is among them.
func resolveProfiles(ctx context.Context, root string, names []string) ([]*profile.Profile, error) {
	env, err := buildenv.Load(root)
	if err != nil {
		return nil, err
	}

	if slices.Contains(names, profile.NameProd) {
		if err := env.ResolveCommit(ctx); err != nil {
			return nil, err
		}
	}

	profiles := make([]*profile.Profile, 0, len(names))
	for _, name := range names {
		p, err := profile.ByName(env, name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
