package plugins

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const vueNamespace = "vue"

var (
	vueScriptRe = regexp.MustCompile(`(?s)<script([^>]*)>(.*?)</script>`)
	vueStyleRe  = regexp.MustCompile(`(?s)<style([^>]*)>(.*?)</style>`)
	vueLangRe   = regexp.MustCompile(`lang=["']?([A-Za-z]+)`)
)

// SFCBlock is one top-level block of a single-file component.
type SFCBlock struct {
	Lang    string
	Content string
}

// SFC is a parsed .vue file.
type SFC struct {
	Template string
	Script   *SFCBlock
	Styles   []SFCBlock
}

// ParseSFC splits a single-file component into its blocks.
func ParseSFC(source string) (*SFC, error) {
	sfc := &SFC{}

	if start := strings.Index(source, "<template"); start >= 0 {
		open := strings.Index(source[start:], ">")
		end := strings.LastIndex(source, "</template>")
		if open < 0 || end < start+open {
			return nil, fmt.Errorf("unterminated <template> block")
		}
		sfc.Template = strings.TrimSpace(source[start+open+1 : end])
	}

	if m := vueScriptRe.FindStringSubmatch(source); m != nil {
		sfc.Script = &SFCBlock{Lang: blockLang(m[1], "js"), Content: m[2]}
	}

	for _, m := range vueStyleRe.FindAllStringSubmatch(source, -1) {
		sfc.Styles = append(sfc.Styles, SFCBlock{Lang: blockLang(m[1], "css"), Content: m[2]})
	}

	return sfc, nil
}

func blockLang(attrs, fallback string) string {
	if m := vueLangRe.FindStringSubmatch(attrs); m != nil {
		return strings.ToLower(m[1])
	}
	return fallback
}

// Module returns the javascript standing in for the component at file.
func (s *SFC) Module(file string) (string, error) {
	var b strings.Builder

	if s.Script != nil {
		fmt.Fprintf(&b, "import __component from %s;\n", strconv.Quote(file+"?type=script"))
	} else {
		b.WriteString("const __component = {};\n")
	}

	for i := range s.Styles {
		fmt.Fprintf(&b, "import %s;\n", strconv.Quote(fmt.Sprintf("%s?type=style&index=%d", file, i)))
	}

	if s.Template != "" {
		var tmpl bytes.Buffer
		enc := json.NewEncoder(&tmpl)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(s.Template); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "__component.template = %s;\n", bytes.TrimSpace(tmpl.Bytes()))
	}

	b.WriteString("export default __component;\n")
	return b.String(), nil
}

type vuePlugin struct {
	sass *SassCompiler
}

// Vue compiles .vue single-file components. The template is attached to
// the component as a string for the runtime compiler.
func Vue(sass *SassCompiler) Plugin {
	return &vuePlugin{sass: sass}
}

func (p *vuePlugin) ID() string {
	return "vue-loader"
}

func (p *vuePlugin) Apply(opts *api.BuildOptions) error {
	opts.Plugins = append(opts.Plugins, api.Plugin{Name: p.ID(), Setup: p.setup})
	return nil
}

func (p *vuePlugin) setup(build api.PluginBuild) {
	build.OnLoad(api.OnLoadOptions{Filter: `\.vue$`, Namespace: "file"},
		func(args api.OnLoadArgs) (api.OnLoadResult, error) {
			sfc, err := readSFC(args.Path)
			if err != nil {
				return api.OnLoadResult{}, err
			}

			contents, err := sfc.Module(args.Path)
			if err != nil {
				return api.OnLoadResult{}, err
			}
			return api.OnLoadResult{Contents: &contents, ResolveDir: filepath.Dir(args.Path), Loader: api.LoaderJS}, nil
		})

	build.OnResolve(api.OnResolveOptions{Filter: `\.vue\?type=`},
		func(args api.OnResolveArgs) (api.OnResolveResult, error) {
			return api.OnResolveResult{Path: args.Path, Namespace: vueNamespace}, nil
		})

	build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: vueNamespace},
		func(args api.OnLoadArgs) (api.OnLoadResult, error) {
			return p.loadBlock(args.Path)
		})
}

func (p *vuePlugin) loadBlock(blockPath string) (api.OnLoadResult, error) {
	file, rawQuery, _ := strings.Cut(blockPath, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return api.OnLoadResult{}, fmt.Errorf("invalid vue block %s: %w", blockPath, err)
	}

	sfc, err := readSFC(file)
	if err != nil {
		return api.OnLoadResult{}, err
	}
	dir := filepath.Dir(file)

	switch query.Get("type") {
	case "script":
		if sfc.Script == nil {
			return api.OnLoadResult{}, fmt.Errorf("%s has no <script> block", file)
		}
		loader := api.LoaderJS
		switch sfc.Script.Lang {
		case "ts":
			loader = api.LoaderTS
		case "jsx":
			loader = api.LoaderJSX
		}
		return api.OnLoadResult{Contents: &sfc.Script.Content, ResolveDir: dir, Loader: loader}, nil

	case "style":
		index, err := strconv.Atoi(query.Get("index"))
		if err != nil || index < 0 || index >= len(sfc.Styles) {
			return api.OnLoadResult{}, fmt.Errorf("%s has no style block %q", file, query.Get("index"))
		}

		style := sfc.Styles[index]
		css := style.Content
		if style.Lang == "scss" {
			css, err = p.sass.Compile(style.Content, file)
			if err != nil {
				return api.OnLoadResult{}, err
			}
		}
		return api.OnLoadResult{Contents: &css, ResolveDir: dir, Loader: api.LoaderCSS}, nil

	default:
		return api.OnLoadResult{}, fmt.Errorf("unknown vue block type in %s", blockPath)
	}
}

func readSFC(file string) (*SFC, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	sfc, err := ParseSFC(string(source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return sfc, nil
}
