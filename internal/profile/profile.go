// Package profile describes build profiles: the entry points, output
// naming, resolution rules, optimization settings and plugin invocations
// that one bundler run is driven by. Profiles are plain values derived from
// a shared base by overlay.
package profile

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/wolfeidau/scriptpack/internal/plugins"
)

var (
	ErrUnknownProfile  = errors.New("unknown profile")
	ErrDuplicatePlugin = errors.New("duplicate plugin")
)

type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// Devtool selects how source maps are emitted.
type Devtool string

const (
	DevtoolNone      Devtool = ""
	DevtoolSourceMap Devtool = "source-map"
	DevtoolInline    Devtool = "inline-source-map"
)

// Loader names the transform applied to files matched by a LoaderRule.
type Loader string

const (
	LoaderCSS  Loader = "css"
	LoaderSCSS Loader = "scss"
	LoaderFile Loader = "file"
	LoaderJS   Loader = "js"
	LoaderJSX  Loader = "jsx"
	LoaderText Loader = "text"
	LoaderVue  Loader = "vue"
)

// Plugin is an externally implemented build step. Apply registers whatever
// the plugin needs on the build options, usually an esbuild plugin.
type Plugin = plugins.Plugin

// EntryPoints maps a logical bundle name to its source file.
type EntryPoints map[string]string

// Names returns the logical names in sorted order.
func (e EntryPoints) Names() []string {
	return slices.Sorted(maps.Keys(e))
}

type Output struct {
	Path          string `yaml:"path" json:"path"`
	PublicPath    string `yaml:"public_path" json:"public_path"`
	Filename      string `yaml:"filename" json:"filename"`
	ChunkFilename string `yaml:"chunk_filename" json:"chunk_filename"`
	AssetFilename string `yaml:"asset_filename" json:"asset_filename"`
}

// HasContentHash reports whether entry and asset file names embed a hash.
// Chunk names always carry one so split chunks never collide.
func (o Output) HasContentHash() bool {
	return strings.Contains(o.Filename, "[hash]") && strings.Contains(o.AssetFilename, "[hash]")
}

type Resolve struct {
	Extensions []string          `yaml:"extensions" json:"extensions"`
	Alias      map[string]string `yaml:"alias" json:"alias"`
}

type Optimization struct {
	Minify      bool `yaml:"minify" json:"minify"`
	KeepNames   bool `yaml:"keep_names" json:"keep_names"`
	SplitChunks bool `yaml:"split_chunks" json:"split_chunks"`
}

type LoaderRule struct {
	Extensions []string `yaml:"extensions" json:"extensions"`
	Loader     Loader   `yaml:"loader" json:"loader"`
}

// Profile is one named build variant.
type Profile struct {
	Name         string                 `yaml:"name" json:"name"`
	Mode         Mode                   `yaml:"mode" json:"mode"`
	Devtool      Devtool                `yaml:"devtool" json:"devtool"`
	RootDir      string                 `yaml:"root_dir" json:"root_dir"`
	Entry        EntryPoints            `yaml:"entry" json:"entry"`
	Output       Output                 `yaml:"output" json:"output"`
	Resolve      Resolve                `yaml:"resolve" json:"resolve"`
	Externals    []plugins.ExternalRule `yaml:"externals" json:"externals"`
	Optimization Optimization           `yaml:"optimization" json:"optimization"`
	Loaders      []LoaderRule           `yaml:"loaders" json:"loaders"`
	Plugins      []Plugin               `yaml:"-" json:"-"`
	DevServer    *DevServer             `yaml:"dev_server,omitempty" json:"dev_server,omitempty"`
}

// PluginIDs returns the plugin identifiers in invocation order.
func (p *Profile) PluginIDs() []string {
	ids := make([]string, 0, len(p.Plugins))
	for _, plugin := range p.Plugins {
		ids = append(ids, plugin.ID())
	}
	return ids
}

// Clone returns a deep copy. Plugins are shared since they are immutable
// once constructed.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Entry = maps.Clone(p.Entry)
	c.Resolve.Extensions = slices.Clone(p.Resolve.Extensions)
	c.Resolve.Alias = maps.Clone(p.Resolve.Alias)
	c.Externals = slices.Clone(p.Externals)
	c.Plugins = slices.Clone(p.Plugins)

	c.Loaders = make([]LoaderRule, len(p.Loaders))
	for i, rule := range p.Loaders {
		c.Loaders[i] = LoaderRule{Extensions: slices.Clone(rule.Extensions), Loader: rule.Loader}
	}

	if p.DevServer != nil {
		ds := p.DevServer.Clone()
		c.DevServer = &ds
	}
	return &c
}

// ComposePlugins returns base followed by extra, rejecting repeated IDs.
func ComposePlugins(base []Plugin, extra ...Plugin) ([]Plugin, error) {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]Plugin, 0, len(base)+len(extra))

	for _, plugin := range slices.Concat(base, extra) {
		if seen[plugin.ID()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, plugin.ID())
		}
		seen[plugin.ID()] = true
		out = append(out, plugin)
	}
	return out, nil
}
