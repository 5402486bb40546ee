package profile

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/scriptpack/internal/buildenv"
	"github.com/wolfeidau/scriptpack/internal/plugins"
)

func testEnv(t *testing.T) *buildenv.Env {
	t.Helper()
	return &buildenv.Env{
		Version: semver.MustParse("4.20.1-beta.3"),
		Commit:  "0f3c2a91d4e5b6a7c8d9e0f1a2b3c4d5e6f7a8b9",
		RootDir: t.TempDir(),
	}
}

func TestAll_sharedEntryPoints(t *testing.T) {
	profiles, err := All(testEnv(t))
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	for i, p := range profiles {
		assert.Equal(t, Names[i], p.Name)
		assert.Equal(t, []string{"avalon", "bridge", "clips", "player"}, p.Entry.Names())
		assert.Equal(t, Entries(), p.Entry)
	}
}

func TestOutput_contentHash(t *testing.T) {
	env := testEnv(t)

	prod, err := Prod(env)
	require.NoError(t, err)
	assert.True(t, prod.Output.HasContentHash())
	assert.Equal(t, "[name].[hash].js", prod.Output.Filename)

	for _, name := range []string{NameWebDev, NameWebDevProd} {
		p, err := ByName(env, name)
		require.NoError(t, err)
		assert.False(t, p.Output.HasContentHash(), name)
		assert.NotContains(t, p.Output.Filename, "[hash]", name)
		assert.NotContains(t, p.Output.AssetFilename, "[hash]", name)
	}
}

func TestProfiles_pluginsExtendBase(t *testing.T) {
	env := testEnv(t)
	baseIDs := Base(env).PluginIDs()

	profiles, err := All(env)
	require.NoError(t, err)

	for _, p := range profiles {
		ids := p.PluginIDs()
		require.GreaterOrEqual(t, len(ids), len(baseIDs), p.Name)
		assert.Equal(t, baseIDs, ids[:len(baseIDs)], p.Name)

		seen := map[string]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "%s has duplicate plugin %s", p.Name, id)
			seen[id] = true
		}
	}

	prod := profiles[0]
	assert.Equal(t, []string{"vue-loader", "define:version", "css-extract", "clean", "define:commit", "copy:script.min.js", "manifest"}, prod.PluginIDs())

	webDev := profiles[1]
	assert.Equal(t, []string{"vue-loader", "define:version", "css-extract", "copy:script.js", "define:commit"}, webDev.PluginIDs())
}

func TestComposePlugins_duplicate(t *testing.T) {
	base := []Plugin{plugins.Define("define:version", map[string]string{"a": "1"})}

	_, err := ComposePlugins(base, plugins.Define("define:version", map[string]string{"b": "2"}))
	require.ErrorIs(t, err, ErrDuplicatePlugin)

	out, err := ComposePlugins(base, plugins.Clean())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, base, 1)
}

func TestByName_unknown(t *testing.T) {
	_, err := ByName(testEnv(t), "staging")
	require.ErrorIs(t, err, ErrUnknownProfile)
	require.ErrorContains(t, err, "prod, webDev, webDevProd")
}

func TestProd_requiresCommit(t *testing.T) {
	env := testEnv(t)
	env.Commit = ""

	_, err := Prod(env)
	var cfgErr *buildenv.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "commit", cfgErr.Field)

	// development profiles embed null instead
	_, err = WebDev(env)
	require.NoError(t, err)
}

func TestProfiles_settings(t *testing.T) {
	env := testEnv(t)

	prod, err := Prod(env)
	require.NoError(t, err)
	assert.Equal(t, ModeProduction, prod.Mode)
	assert.Equal(t, DevtoolSourceMap, prod.Devtool)
	assert.Equal(t, "//cdn.frankerfacez.com/static/", prod.Output.PublicPath)
	assert.True(t, prod.Optimization.Minify)
	assert.True(t, prod.Optimization.KeepNames)
	assert.Nil(t, prod.DevServer)

	webDev, err := WebDev(env)
	require.NoError(t, err)
	assert.Equal(t, ModeDevelopment, webDev.Mode)
	assert.Equal(t, DevtoolInline, webDev.Devtool)
	assert.Equal(t, "//localhost:8000/script/", webDev.Output.PublicPath)
	assert.False(t, webDev.Optimization.Minify)
	assert.Nil(t, webDev.DevServer)

	webDevProd, err := WebDevProd(env)
	require.NoError(t, err)
	assert.Equal(t, DevtoolNone, webDevProd.Devtool)
	require.NotNil(t, webDevProd.DevServer)
	assert.Equal(t, "https://cdn.frankerfacez.com/", webDevProd.DevServer.ProxyTarget)
	assert.Equal(t, 2, webDevProd.DevServer.StatusVersion)
	assert.Equal(t, "npm run font:save", webDevProd.DevServer.FontCommand)
}

func TestClone_independent(t *testing.T) {
	env := testEnv(t)
	p, err := WebDevProd(env)
	require.NoError(t, err)

	c := p.Clone()
	c.Entry["extra"] = "./src/extra.js"
	c.Resolve.Alias["res"] = "/elsewhere"
	c.Loaders[0].Extensions[0] = ".less"
	c.DevServer.AllowedHosts[0] = ".example.com"
	c.Plugins = append(c.Plugins[:0], plugins.Clean())

	assert.NotContains(t, p.Entry, "extra")
	assert.NotEqual(t, "/elsewhere", p.Resolve.Alias["res"])
	assert.Equal(t, ".css", p.Loaders[0].Extensions[0])
	assert.Equal(t, ".twitch.tv", p.DevServer.AllowedHosts[0])
	assert.Equal(t, "vue-loader", p.Plugins[0].ID())

	// profiles built from the same env share no state
	other, err := WebDevProd(env)
	require.NoError(t, err)
	assert.Equal(t, Entries(), other.Entry)
}

func TestVersionDefines(t *testing.T) {
	defines := versionDefines(testEnv(t))
	assert.Equal(t, map[string]string{
		"__version_major__":      "4",
		"__version_minor__":      "20",
		"__version_patch__":      "1",
		"__version_prerelease__": `["beta",3]`,
	}, defines)

	env := testEnv(t)
	env.Version = semver.MustParse("1.2.3")
	assert.Equal(t, "[]", versionDefines(env)["__version_prerelease__"])
}

func TestDevServer_Overlay(t *testing.T) {
	ds := DefaultDevServer("/project")
	out := ds.Overlay(DevServerOverride{Listen: "127.0.0.1:9000", FontCommand: "make fonts"})

	assert.Equal(t, "127.0.0.1:9000", out.Listen)
	assert.Equal(t, "make fonts", out.FontCommand)
	assert.Equal(t, ds.ProxyTarget, out.ProxyTarget)
	assert.Equal(t, "0.0.0.0:8000", ds.Listen)

	// unset booleans keep their value
	assert.True(t, out.TLS)
	assert.True(t, out.Compress)
	assert.True(t, out.ChangeOrigin)
}

func TestDevServer_OverlayDisables(t *testing.T) {
	off := false
	ds := DefaultDevServer("/project")
	out := ds.Overlay(DevServerOverride{TLS: &off, Compress: &off, ChangeOrigin: &off})

	assert.False(t, out.TLS)
	assert.False(t, out.Compress)
	assert.False(t, out.ChangeOrigin)
	assert.True(t, ds.TLS)

	on := true
	plain := DevServer{}
	assert.True(t, plain.Overlay(DevServerOverride{TLS: &on}).TLS)
}
