package plugins

import (
	"fmt"
	"regexp"

	"github.com/evanw/esbuild/pkg/api"
)

const externalNamespace = "external-global"

// ExternalRule resolves an import of Request to a browser global, except when
// the importing file's path matches ExceptContext.
type ExternalRule struct {
	Request       string `yaml:"request" json:"request"`
	ExceptContext string `yaml:"except_context,omitempty" json:"except_context,omitempty"`
	Global        string `yaml:"global" json:"global"`
}

type externalsPlugin struct {
	rules []ExternalRule
}

// Externals excludes matching imports from the bundle.
func Externals(rules []ExternalRule) Plugin {
	return &externalsPlugin{rules: rules}
}

func (p *externalsPlugin) ID() string {
	return "externals"
}

func (p *externalsPlugin) Apply(opts *api.BuildOptions) error {
	type compiled struct {
		rule   ExternalRule
		except *regexp.Regexp
	}

	rules := make([]compiled, 0, len(p.rules))
	for _, rule := range p.rules {
		c := compiled{rule: rule}
		if rule.ExceptContext != "" {
			re, err := regexp.Compile(rule.ExceptContext)
			if err != nil {
				return fmt.Errorf("externals: invalid context pattern for %s: %w", rule.Request, err)
			}
			c.except = re
		}
		rules = append(rules, c)
	}

	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: p.ID(),
		Setup: func(build api.PluginBuild) {
			for _, c := range rules {
				build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(c.rule.Request) + "$"},
					func(args api.OnResolveArgs) (api.OnResolveResult, error) {
						if c.except != nil && c.except.MatchString(args.ResolveDir) {
							return api.OnResolveResult{}, nil
						}
						return api.OnResolveResult{
							Path:       c.rule.Request,
							Namespace:  externalNamespace,
							PluginData: c.rule.Global,
						}, nil
					})
			}

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: externalNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					global, _ := args.PluginData.(string)
					contents := GlobalShim(global)
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	})
	return nil
}

// GlobalShim is the module body standing in for an external import.
func GlobalShim(global string) string {
	return fmt.Sprintf("module.exports = globalThis[%q];\n", global)
}
