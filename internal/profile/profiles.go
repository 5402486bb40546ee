package profile

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wolfeidau/scriptpack/internal/buildenv"
	"github.com/wolfeidau/scriptpack/internal/plugins"
)

const (
	NameProd       = "prod"
	NameWebDev     = "webDev"
	NameWebDevProd = "webDevProd"

	cdnPublicPath   = "//cdn.frankerfacez.com/static/"
	localPublicPath = "//localhost:8000/script/"

	loaderScriptSource = "./src/entry.js"
)

// Names lists every profile in the order All returns them.
var Names = []string{NameProd, NameWebDev, NameWebDevProd}

// Entries returns the entry point set shared by every profile.
func Entries() EntryPoints {
	return EntryPoints{
		"bridge": "./src/bridge.js",
		"player": "./src/player.js",
		"avalon": "./src/main.js",
		"clips":  "./src/clips.js",
	}
}

// Base returns the configuration every profile starts from. It has no name
// and no entry points.
func Base(env *buildenv.Env) *Profile {
	root := env.RootDir
	sass := plugins.NewSassCompiler(env.DartSass, filepath.Join(root, "styles"))

	return &Profile{
		RootDir: root,
		Output: Output{
			Path:          filepath.Join(root, "dist"),
			ChunkFilename: "[name].[hash].js",
		},
		Resolve: Resolve{
			Extensions: []string{".js", ".jsx"},
			Alias: map[string]string{
				"res":       filepath.Join(root, "res"),
				"styles":    filepath.Join(root, "styles"),
				"root":      root,
				"src":       filepath.Join(root, "src"),
				"utilities": filepath.Join(root, "src", "utilities"),
				"site":      filepath.Join(root, "src", "sites", "twitch-twilight"),
			},
		},
		Externals: []plugins.ExternalRule{
			{Request: "vue", ExceptContext: "utilities", Global: "ffzVue"},
		},
		Optimization: Optimization{
			SplitChunks: true,
		},
		Loaders: []LoaderRule{
			{Extensions: []string{".css"}, Loader: LoaderCSS},
			{Extensions: []string{".scss"}, Loader: LoaderSCSS},
			{Extensions: []string{".json"}, Loader: LoaderFile},
			{Extensions: []string{".js"}, Loader: LoaderJS},
			{Extensions: []string{".jsx"}, Loader: LoaderJSX},
			{Extensions: []string{".graphql", ".gql"}, Loader: LoaderText},
			{Extensions: []string{".otf", ".eot", ".ttf", ".woff", ".woff2"}, Loader: LoaderFile},
			{Extensions: []string{".md", ".svg"}, Loader: LoaderText},
			{Extensions: []string{".vue"}, Loader: LoaderVue},
		},
		Plugins: []Plugin{
			plugins.Vue(sass),
			plugins.Define("define:version", versionDefines(env)),
			plugins.CSSExtract(sass),
		},
	}
}

// Prod is the hashed, minified build published to the CDN.
func Prod(env *buildenv.Env) (*Profile, error) {
	base := Base(env)
	p := base.Clone()

	p.Name = NameProd
	p.Mode = ModeProduction
	p.Devtool = DevtoolSourceMap
	p.Entry = Entries()
	p.Output.PublicPath = cdnPublicPath
	p.Output.Filename = "[name].[hash].js"
	p.Output.AssetFilename = "[name].[hash]"
	p.Optimization.Minify = true
	p.Optimization.KeepNames = true

	if env.Commit == "" {
		return nil, &buildenv.ConfigError{Field: "commit", Reason: "the prod profile embeds the source commit; resolve it first"}
	}
	commit, err := json.Marshal(env.Commit)
	if err != nil {
		return nil, err
	}

	p.Plugins, err = ComposePlugins(base.Plugins,
		plugins.Clean(),
		plugins.Define("define:commit", map[string]string{"__git_commit__": string(commit)}),
		plugins.Copy(plugins.CopyOptions{From: loaderScriptSource, To: "script.min.js", Minify: true}),
		plugins.Manifest(plugins.ManifestOptions{Entries: p.Entry}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compose %s plugins: %w", p.Name, err)
	}
	return p, nil
}

// WebDev is the unminified development build with inline source maps.
func WebDev(env *buildenv.Env) (*Profile, error) {
	p, err := development(env)
	if err != nil {
		return nil, err
	}
	p.Name = NameWebDev
	p.Devtool = DevtoolInline
	return p, nil
}

// WebDevProd is the development build served by the dev server.
func WebDevProd(env *buildenv.Env) (*Profile, error) {
	p, err := development(env)
	if err != nil {
		return nil, err
	}
	p.Name = NameWebDevProd
	p.Devtool = DevtoolNone

	ds := DefaultDevServer(env.RootDir)
	p.DevServer = &ds
	return p, nil
}

// DefaultDevServer returns the dev server settings used by webDevProd.
func DefaultDevServer(root string) DevServer {
	return DevServer{
		Listen:           "0.0.0.0:8000",
		TLS:              true,
		Compress:         true,
		AllowedHosts:     []string{".twitch.tv", ".frankerfacez.com"},
		StaticDir:        filepath.Join(root, "dev_cdn"),
		StaticPublicPath: "/script/",
		ProxyTarget:      "https://cdn.frankerfacez.com/",
		ChangeOrigin:     true,
		FontCommand:      "npm run font:save",
		StatusVersion:    2,
	}
}

func development(env *buildenv.Env) (*Profile, error) {
	base := Base(env)
	p := base.Clone()

	p.Mode = ModeDevelopment
	p.Entry = Entries()
	p.Output.PublicPath = localPublicPath
	p.Output.Filename = "[name].js"
	p.Output.AssetFilename = "[name]"

	var err error
	p.Plugins, err = ComposePlugins(base.Plugins,
		plugins.Copy(plugins.CopyOptions{From: loaderScriptSource, To: "script.js"}),
		plugins.Define("define:commit", map[string]string{"__git_commit__": "null"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compose development plugins: %w", err)
	}
	return p, nil
}

// All returns prod, webDev and webDevProd.
func All(env *buildenv.Env) ([]*Profile, error) {
	out := make([]*Profile, 0, len(Names))
	for _, name := range Names {
		p, err := ByName(env, name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ByName returns the profile called name.
func ByName(env *buildenv.Env, name string) (*Profile, error) {
	switch name {
	case NameProd:
		return Prod(env)
	case NameWebDev:
		return WebDev(env)
	case NameWebDevProd:
		return WebDevProd(env)
	default:
		return nil, fmt.Errorf("%w %q (valid: %s)", ErrUnknownProfile, name, strings.Join(Names, ", "))
	}
}

func versionDefines(env *buildenv.Env) map[string]string {
	major, minor, patch, prerelease := env.VersionParts()

	ids := make([]string, 0, len(prerelease))
	for _, id := range prerelease {
		// numeric identifiers are embedded as numbers
		if _, err := strconv.ParseUint(id, 10, 64); err == nil {
			ids = append(ids, id)
			continue
		}
		ids = append(ids, strconv.Quote(id))
	}

	return map[string]string{
		"__version_major__":      strconv.FormatUint(major, 10),
		"__version_minor__":      strconv.FormatUint(minor, 10),
		"__version_patch__":      strconv.FormatUint(patch, 10),
		"__version_prerelease__": "[" + strings.Join(ids, ",") + "]",
	}
}
