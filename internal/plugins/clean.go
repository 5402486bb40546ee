package plugins

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// Clean removes the output directory before the first build.
func Clean() Plugin {
	return &esbuildPlugin{
		id: "clean",
		setup: func(build api.PluginBuild) {
			outdir := build.InitialOptions.Outdir
			wd := build.InitialOptions.AbsWorkingDir
			cleaned := false

			build.OnStart(func() (api.OnStartResult, error) {
				if cleaned {
					return api.OnStartResult{}, nil
				}
				cleaned = true

				if err := cleanDir(outdir, wd); err != nil {
					return api.OnStartResult{}, err
				}
				log.Debug().Str("dir", outdir).Msg("Cleaned output directory")
				return api.OnStartResult{}, nil
			})
		},
	}
}

func cleanDir(outdir, wd string) error {
	if outdir == "" {
		return fmt.Errorf("clean: no output directory configured")
	}

	abs, err := filepath.Abs(outdir)
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	if abs == filepath.Dir(abs) || (wd != "" && abs == filepath.Clean(wd)) {
		return fmt.Errorf("clean: refusing to remove %s", abs)
	}

	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	return nil
}
