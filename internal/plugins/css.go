package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bep/godartsass/v2"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

var ErrSassUnavailable = errors.New("scss support requires a dart-sass executable (set SCRIPTPACK_DART_SASS)")

// SassCompiler compiles scss through an embedded dart-sass process that is
// started on first use.
type SassCompiler struct {
	binary       string
	includePaths []string

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

func NewSassCompiler(binary string, includePaths ...string) *SassCompiler {
	return &SassCompiler{binary: binary, includePaths: includePaths}
}

// Enabled reports whether a dart-sass executable is configured.
func (s *SassCompiler) Enabled() bool {
	return s != nil && s.binary != ""
}

// Compile turns the scss read from file into css.
func (s *SassCompiler) Compile(source, file string) (string, error) {
	if !s.Enabled() {
		return "", ErrSassUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transpiler == nil {
		t, err := godartsass.Start(godartsass.Options{DartSassEmbeddedFilename: s.binary})
		if err != nil {
			return "", fmt.Errorf("failed to start dart-sass: %w", err)
		}
		s.transpiler = t
	}

	result, err := s.transpiler.Execute(godartsass.Args{
		Source:       source,
		URL:          "file://" + filepath.ToSlash(file),
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		IncludePaths: slices.Concat([]string{filepath.Dir(file)}, s.includePaths),
	})
	if err != nil {
		return "", fmt.Errorf("failed to compile %s: %w", file, err)
	}
	return result.CSS, nil
}

// Close stops the dart-sass process. The compiler restarts on next use.
func (s *SassCompiler) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transpiler == nil {
		return nil
	}
	err := s.transpiler.Close()
	s.transpiler = nil
	return err
}

type cssExtractPlugin struct {
	sass *SassCompiler
}

// CSSExtract emits stylesheets as separate files next to the scripts that
// import them, compiling scss on the way.
func CSSExtract(sass *SassCompiler) Plugin {
	return &cssExtractPlugin{sass: sass}
}

func (p *cssExtractPlugin) ID() string {
	return "css-extract"
}

func (p *cssExtractPlugin) Apply(opts *api.BuildOptions) error {
	if opts.Loader == nil {
		opts.Loader = make(map[string]api.Loader)
	}
	opts.Loader[".css"] = api.LoaderCSS

	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: p.ID(),
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.scss$`, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					source, err := os.ReadFile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}

					css, err := p.sass.Compile(string(source), args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}

					return api.OnLoadResult{
						Contents:   &css,
						ResolveDir: filepath.Dir(args.Path),
						Loader:     api.LoaderCSS,
					}, nil
				})

			build.OnDispose(func() {
				if err := p.sass.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to stop dart-sass")
				}
			})
		},
	})
	return nil
}
