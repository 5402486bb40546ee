// Package plugins holds the build steps a profile invokes. Each plugin
// registers itself on the esbuild build options; most do so by appending an
// esbuild plugin with start and end hooks.
package plugins

import (
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
)

// Plugin is a named build step applied to the esbuild options.
type Plugin interface {
	ID() string
	Apply(opts *api.BuildOptions) error
}

type esbuildPlugin struct {
	id    string
	setup func(build api.PluginBuild)
}

func (p *esbuildPlugin) ID() string {
	return p.id
}

func (p *esbuildPlugin) Apply(opts *api.BuildOptions) error {
	opts.Plugins = append(opts.Plugins, api.Plugin{Name: p.id, Setup: p.setup})
	return nil
}

// resolvePath anchors rel on the working directory of the build.
func resolvePath(opts *api.BuildOptions, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	wd := opts.AbsWorkingDir
	if wd == "" {
		wd, _ = os.Getwd()
	}
	return filepath.Join(wd, rel)
}

func hasErrors(result *api.BuildResult) bool {
	return result == nil || len(result.Errors) > 0
}
