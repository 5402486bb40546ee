package bundler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/scriptpack/internal/plugins"
	"github.com/wolfeidau/scriptpack/internal/profile"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func testProfile(t *testing.T) *profile.Profile {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "src", "main.js"), `import Vue from "vue";
import "./main.css";
import { greet } from "utilities/greet";
console.log(greet(Vue), __git_commit__);
`)
	writeFile(t, filepath.Join(root, "src", "main.css"), "body { color: red; }\n")
	writeFile(t, filepath.Join(root, "src", "utilities", "greet.js"), "export function greet(v) { return 'hello ' + typeof v; }\n")
	writeFile(t, filepath.Join(root, "src", "entry.js"), "(function () { var loader = 'scriptpack'; console.log(loader); })();\n")

	entries := profile.EntryPoints{"avalon": "./src/main.js"}

	return &profile.Profile{
		Name:    "test",
		Mode:    profile.ModeProduction,
		RootDir: root,
		Entry:   entries,
		Output: profile.Output{
			Path:          filepath.Join(root, "dist"),
			Filename:      "[name].[hash].js",
			ChunkFilename: "[name].[hash].js",
			AssetFilename: "[name].[hash]",
		},
		Resolve: profile.Resolve{
			Extensions: []string{".js", ".jsx"},
			Alias: map[string]string{
				"utilities": filepath.Join(root, "src", "utilities"),
			},
		},
		Externals: []plugins.ExternalRule{
			{Request: "vue", ExceptContext: "utilities", Global: "ffzVue"},
		},
		Loaders: []profile.LoaderRule{
			{Extensions: []string{".css"}, Loader: profile.LoaderCSS},
			{Extensions: []string{".js"}, Loader: profile.LoaderJS},
		},
		Plugins: []profile.Plugin{
			plugins.Clean(),
			plugins.Define("define:commit", map[string]string{"__git_commit__": `"abc123"`}),
			plugins.Copy(plugins.CopyOptions{From: "./src/entry.js", To: "script.min.js", Minify: true}),
			plugins.Manifest(plugins.ManifestOptions{Entries: entries}),
		},
	}
}

func TestPipeline_Build(t *testing.T) {
	p := testProfile(t)

	// stale output is removed by the clean plugin
	stale := filepath.Join(p.Output.Path, "stale.js")
	writeFile(t, stale, "old")

	pipeline := New(p)
	_, err := pipeline.Outputs()
	require.Error(t, err)

	require.NoError(t, pipeline.Build(context.Background()))

	_, err = os.Stat(stale)
	require.True(t, os.IsNotExist(err))

	outputs, err := pipeline.Outputs()
	require.NoError(t, err)
	require.NotEmpty(t, outputs)

	var js, css string
	for _, out := range outputs {
		switch filepath.Ext(out) {
		case ".js":
			js = out
		case ".css":
			css = out
		}
	}
	require.Regexp(t, `^avalon\.[A-Z0-9]+\.js$`, js)
	require.Regexp(t, `^avalon\.[A-Z0-9]+\.css$`, css)

	bundle, err := os.ReadFile(filepath.Join(p.Output.Path, js))
	require.NoError(t, err)
	assert.Contains(t, string(bundle), "ffzVue")
	assert.Contains(t, string(bundle), "abc123")

	data, err := os.ReadFile(filepath.Join(p.Output.Path, plugins.DefaultManifestFilename))
	require.NoError(t, err)

	var manifest map[string]string
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, js, manifest["avalon.js"])
	assert.Equal(t, css, manifest["avalon.css"])

	minified, err := os.ReadFile(filepath.Join(p.Output.Path, "script.min.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(minified), "\n  ")
	assert.Contains(t, string(minified), "scriptpack")
}

func TestPipeline_BuildError(t *testing.T) {
	p := testProfile(t)
	writeFile(t, filepath.Join(p.RootDir, "src", "main.js"), "import missing from './does-not-exist';\n")

	err := New(p).Build(context.Background())
	require.ErrorIs(t, err, ErrBuildFailed)

	_, statErr := os.Stat(filepath.Join(p.Output.Path, plugins.DefaultManifestFilename))
	require.True(t, os.IsNotExist(statErr))
}

func TestOptions(t *testing.T) {
	p := testProfile(t)
	p.Devtool = profile.DevtoolInline
	p.Optimization = profile.Optimization{Minify: true, KeepNames: true, SplitChunks: true}

	opts, err := Options(p)
	require.NoError(t, err)

	assert.Equal(t, "[name].[hash]", opts.EntryNames)
	assert.Equal(t, "[name].[hash]", opts.ChunkNames)
	assert.Equal(t, api.SourceMapInline, opts.Sourcemap)
	assert.True(t, opts.Splitting)
	assert.True(t, opts.MinifyIdentifiers)
	assert.True(t, opts.KeepNames)
	assert.True(t, opts.Metafile)
	assert.Equal(t, `"abc123"`, opts.Define["__git_commit__"])
	assert.Equal(t, api.LoaderCSS, opts.Loader[".css"])
	assert.Equal(t, []api.EntryPoint{{InputPath: "./src/main.js", OutputPath: "avalon"}}, opts.EntryPointsAdvanced)

	names := make([]string, 0, len(opts.Plugins))
	for _, plugin := range opts.Plugins {
		names = append(names, plugin.Name)
	}
	assert.Equal(t, []string{"externals", "clean", "copy:script.min.js", "manifest"}, names)
}

func TestOptions_errors(t *testing.T) {
	p := testProfile(t)
	p.Entry = nil
	_, err := Options(p)
	require.ErrorContains(t, err, "no entry points")

	p = testProfile(t)
	p.Loaders = append(p.Loaders, profile.LoaderRule{Extensions: []string{".txt"}, Loader: "raw"})
	_, err = Options(p)
	require.ErrorContains(t, err, `unknown loader "raw"`)

	p = testProfile(t)
	p.Plugins = append(p.Plugins, plugins.Define("define:again", map[string]string{"__git_commit__": "null"}))
	_, err = Options(p)
	require.ErrorContains(t, err, "already defined")
}

func TestSourceMap(t *testing.T) {
	assert.Equal(t, api.SourceMapLinked, sourceMap(profile.DevtoolSourceMap))
	assert.Equal(t, api.SourceMapInline, sourceMap(profile.DevtoolInline))
	assert.Equal(t, api.SourceMapNone, sourceMap(profile.DevtoolNone))
}

func TestLoaderMap_skipsPluginLoaders(t *testing.T) {
	loaders, err := loaderMap([]profile.LoaderRule{
		{Extensions: []string{".scss"}, Loader: profile.LoaderSCSS},
		{Extensions: []string{".vue"}, Loader: profile.LoaderVue},
		{Extensions: []string{".graphql", ".gql"}, Loader: profile.LoaderText},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]api.Loader{".graphql": api.LoaderText, ".gql": api.LoaderText}, loaders)
}
