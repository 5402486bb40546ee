package bundler

import (
	"fmt"
	"maps"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/scriptpack/internal/plugins"
	"github.com/wolfeidau/scriptpack/internal/profile"
)

// jsxPragma is the factory used for .jsx files.
const jsxPragma = "createElement"

// Options translates a profile into esbuild build options.
func Options(p *profile.Profile) (api.BuildOptions, error) {
	if len(p.Entry) == 0 {
		return api.BuildOptions{}, fmt.Errorf("profile %q has no entry points", p.Name)
	}

	loaders, err := loaderMap(p.Loaders)
	if err != nil {
		return api.BuildOptions{}, fmt.Errorf("profile %q: %w", p.Name, err)
	}

	entries := make([]api.EntryPoint, 0, len(p.Entry))
	for _, name := range p.Entry.Names() {
		entries = append(entries, api.EntryPoint{InputPath: p.Entry[name], OutputPath: name})
	}

	minify := p.Optimization.Minify

	opts := api.BuildOptions{
		AbsWorkingDir:       p.RootDir,
		EntryPointsAdvanced: entries,
		Bundle:              true,
		Write:               true,
		Platform:            api.PlatformBrowser,
		Format:              api.FormatESModule,
		Splitting:           p.Optimization.SplitChunks,
		Outdir:              p.Output.Path,
		PublicPath:          p.Output.PublicPath,
		EntryNames:          strings.TrimSuffix(p.Output.Filename, ".js"),
		ChunkNames:          strings.TrimSuffix(p.Output.ChunkFilename, ".js"),
		AssetNames:          p.Output.AssetFilename,
		ResolveExtensions:   p.Resolve.Extensions,
		Alias:               maps.Clone(p.Resolve.Alias),
		Loader:              loaders,
		JSX:                 api.JSXTransform,
		JSXFactory:          jsxPragma,
		MinifyWhitespace:    minify,
		MinifyIdentifiers:   minify,
		MinifySyntax:        minify,
		KeepNames:           p.Optimization.KeepNames,
		TreeShaking:         cond(minify, api.TreeShakingTrue, api.TreeShakingDefault),
		Sourcemap:           sourceMap(p.Devtool),
		Metafile:            true,
		LogLevel:            api.LogLevelSilent,
	}

	if len(p.Externals) > 0 {
		if err := plugins.Externals(p.Externals).Apply(&opts); err != nil {
			return api.BuildOptions{}, err
		}
	}

	for _, plugin := range p.Plugins {
		if err := plugin.Apply(&opts); err != nil {
			return api.BuildOptions{}, fmt.Errorf("plugin %s: %w", plugin.ID(), err)
		}
	}

	return opts, nil
}

func loaderMap(rules []profile.LoaderRule) (map[string]api.Loader, error) {
	loaders := make(map[string]api.Loader)
	for _, rule := range rules {
		var loader api.Loader
		switch rule.Loader {
		case profile.LoaderCSS:
			loader = api.LoaderCSS
		case profile.LoaderFile:
			loader = api.LoaderFile
		case profile.LoaderJS:
			loader = api.LoaderJS
		case profile.LoaderJSX:
			loader = api.LoaderJSX
		case profile.LoaderText:
			loader = api.LoaderText
		case profile.LoaderSCSS, profile.LoaderVue:
			// compiled by plugins
			continue
		default:
			return nil, fmt.Errorf("unknown loader %q", rule.Loader)
		}

		for _, ext := range rule.Extensions {
			loaders[ext] = loader
		}
	}
	return loaders, nil
}

func sourceMap(devtool profile.Devtool) api.SourceMap {
	switch devtool {
	case profile.DevtoolSourceMap:
		return api.SourceMapLinked
	case profile.DevtoolInline:
		return api.SourceMapInline
	default:
		return api.SourceMapNone
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
