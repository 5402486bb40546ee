package plugins

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/scriptpack/internal/metafile"
)

const DefaultManifestFilename = "manifest.json"

type ManifestOptions struct {
	// Entries maps logical bundle names to source paths.
	Entries map[string]string
	// PublicPath prefixes every value.
	PublicPath string
	// Filename defaults to manifest.json.
	Filename string
}

// Manifest writes a JSON file mapping logical names to emitted file names.
func Manifest(opts ManifestOptions) Plugin {
	return &manifestPlugin{opts: opts}
}

type manifestPlugin struct {
	opts ManifestOptions
}

func (p *manifestPlugin) ID() string {
	return "manifest"
}

func (p *manifestPlugin) Apply(opts *api.BuildOptions) error {
	opts.Metafile = true
	opts.Plugins = append(opts.Plugins, api.Plugin{Name: p.ID(), Setup: p.setup})
	return nil
}

func (p *manifestPlugin) setup(build api.PluginBuild) {
	outdir := build.InitialOptions.Outdir
	wd := build.InitialOptions.AbsWorkingDir

	filename := p.opts.Filename
	if filename == "" {
		filename = DefaultManifestFilename
	}

	build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
		if hasErrors(result) {
			return api.OnEndResult{}, nil
		}

		meta, err := metafile.Parse(result.Metafile)
		if err != nil {
			return api.OnEndResult{}, fmt.Errorf("manifest: %w", err)
		}

		prefix, err := filepath.Rel(wd, outdir)
		if err != nil {
			return api.OnEndResult{}, fmt.Errorf("manifest: %w", err)
		}

		entries := BuildManifest(meta, p.opts.Entries, filepath.ToSlash(prefix), p.opts.PublicPath)

		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return api.OnEndResult{}, fmt.Errorf("manifest: %w", err)
		}

		target := filepath.Join(outdir, filename)
		if err := os.WriteFile(target, data, 0o644); err != nil { //nolint:gosec
			return api.OnEndResult{}, fmt.Errorf("manifest: %w", err)
		}

		log.Debug().Str("file", target).Int("entries", len(entries)).Msg("Wrote manifest")
		return api.OnEndResult{}, nil
	})
}

// BuildManifest maps logical names to output file names. Output paths in the
// metafile are relative to the working directory; prefix is the output
// directory relative to it.
func BuildManifest(meta *metafile.Metafile, entries map[string]string, prefix, publicPath string) map[string]string {
	bySource := make(map[string]string, len(entries))
	for name, source := range entries {
		bySource[path.Clean(filepath.ToSlash(source))] = name
	}

	// css emitted for a js entry takes the entry's name
	cssOwners := make(map[string]string)
	for _, outPath := range meta.OutputPaths() {
		out := meta.Outputs[outPath]
		if name := entryName(out.EntryPoint, bySource); name != "" && out.CSSBundle != "" {
			cssOwners[out.CSSBundle] = name
		}
	}

	keys := make(map[string]string, len(meta.Outputs))
	manifest := make(map[string]string, len(meta.Outputs))
	var mapFiles []string

	for _, outPath := range meta.OutputPaths() {
		if strings.HasSuffix(outPath, ".map") {
			mapFiles = append(mapFiles, outPath)
			continue
		}

		out := meta.Outputs[outPath]
		rel := strings.TrimPrefix(outPath, prefix+"/")

		name := entryName(out.EntryPoint, bySource)

		var key string
		switch {
		case cssOwners[outPath] != "":
			key = cssOwners[outPath] + ".css"
		case name != "":
			key = name + path.Ext(rel)
		default:
			key = chunkKey(out, rel)
		}

		key = cssName(key)
		// split chunks may share a name, the hashed file name keeps them apart
		if _, taken := manifest[key]; taken {
			key = path.Base(rel)
		}
		keys[outPath] = key
		manifest[key] = publicPath + rel
	}

	for _, outPath := range mapFiles {
		origin := strings.TrimSuffix(outPath, ".map")
		key, ok := keys[origin]
		if !ok {
			key = path.Base(origin)
		}
		manifest[key+".map"] = publicPath + strings.TrimPrefix(outPath, prefix+"/")
	}

	return manifest
}

// entryName is the logical name of an output built from entryPoint: the
// configured name, or the source file's base name for dynamic imports.
func entryName(entryPoint string, bySource map[string]string) string {
	if entryPoint == "" {
		return ""
	}
	if name, ok := bySource[entryPoint]; ok {
		return name
	}
	base := path.Base(entryPoint)
	return strings.TrimSuffix(base, path.Ext(base))
}

// chunkKey names an output that is not an entry point. A chunk with a single
// source file takes that file's name; anything else, including chunks made
// only of virtual modules such as defines, takes its own name without the
// content hash.
func chunkKey(out metafile.Output, rel string) string {
	var sources []string
	for input := range out.Inputs {
		if !strings.HasPrefix(input, "<") {
			sources = append(sources, input)
		}
	}
	if len(sources) == 1 {
		return path.Base(sources[0])
	}
	return stripHash(path.Base(rel))
}

var esbuildHash = regexp.MustCompile(`^[A-Z2-7]{8}$`)

// stripHash drops the [hash] segment from a name like chunk.2TA7LCBQ.js.
func stripHash(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 3 || !esbuildHash.MatchString(parts[len(parts)-2]) {
		return name
	}
	return strings.Join(append(parts[:len(parts)-2:len(parts)-2], parts[len(parts)-1]), ".")
}

func cssName(name string) string {
	if base, ok := strings.CutSuffix(name, ".scss"); ok {
		return base + ".css"
	}
	return name
}
