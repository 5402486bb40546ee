package plugins

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

type CopyOptions struct {
	// From is the source file, relative to the project root.
	From string
	// To is the destination, relative to the output directory.
	To string
	// Minify runs the content through the esbuild transform API.
	Minify bool
}

// Copy writes a file into the output directory after every successful build.
func Copy(opts CopyOptions) Plugin {
	id := "copy:" + opts.To
	return &esbuildPlugin{
		id: id,
		setup: func(build api.PluginBuild) {
			from := resolvePath(build.InitialOptions, opts.From)
			to := filepath.Join(build.InitialOptions.Outdir, opts.To)

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if hasErrors(result) {
					return api.OnEndResult{}, nil
				}
				if err := copyFile(from, to, opts.Minify); err != nil {
					return api.OnEndResult{}, fmt.Errorf("%s: %w", id, err)
				}
				log.Debug().Str("from", from).Str("to", to).Bool("minify", opts.Minify).Msg("Copied file")
				return api.OnEndResult{}, nil
			})
		},
	}
}

func copyFile(from, to string, minify bool) error {
	content, err := os.ReadFile(from)
	if err != nil {
		return err
	}

	if minify {
		content = MinifyScript(content)
	}

	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.WriteFile(to, content, 0o644) //nolint:gosec
}

// MinifyScript returns the minified form of a standalone script, or the
// original content when it cannot be minified.
func MinifyScript(content []byte) []byte {
	result := api.Transform(string(content), api.TransformOptions{
		Loader:            api.LoaderJS,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
	})
	if len(result.Errors) > 0 || len(result.Code) == 0 {
		for _, msg := range result.Errors {
			log.Warn().Str("error", msg.Text).Msg("Minify failed, copying original content")
		}
		return content
	}
	return result.Code
}
