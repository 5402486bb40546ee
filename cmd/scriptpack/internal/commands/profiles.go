package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/scriptpack/internal/logger"
	"github.com/wolfeidau/scriptpack/internal/profile"
	"gopkg.in/yaml.v3"
)

type ProfilesCmd struct {
	Profiles []string `name:"profile" short:"p" help:"profile to print, repeatable (default: all)" env:"SCRIPTPACK_PROFILE"`
	Root     string   `help:"project root directory" default:"." env:"SCRIPTPACK_ROOT" type:"path"`
	Format   string   `help:"output format" default:"yaml" enum:"yaml,json"`
}

// profileView is a profile as printed, with plugins reduced to their IDs.
type profileView struct {
	profile.Profile `yaml:",inline"`
	PluginIDs       []string `yaml:"plugins" json:"plugins"`
}

func (c *ProfilesCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	names, err := selectProfiles(c.Profiles)
	if err != nil {
		return err
	}

	profiles, err := resolveProfiles(ctx, c.Root, names)
	if err != nil {
		return err
	}

	return writeProfiles(os.Stdout, c.Format, profiles)
}

func writeProfiles(w io.Writer, format string, profiles []*profile.Profile) error {
	views := make([]profileView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, profileView{Profile: *p, PluginIDs: p.PluginIDs()})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return fmt.Errorf("failed to encode profiles: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
