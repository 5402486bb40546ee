package plugins

import (
	"fmt"
	"maps"

	"github.com/evanw/esbuild/pkg/api"
)

// DefinePlugin replaces global identifiers with constant expressions.
type DefinePlugin struct {
	id     string
	values map[string]string
}

// Define creates a DefinePlugin. Values must be JSON literals or identifiers.
func Define(id string, values map[string]string) *DefinePlugin {
	return &DefinePlugin{id: id, values: maps.Clone(values)}
}

func (p *DefinePlugin) ID() string {
	return p.id
}

func (p *DefinePlugin) Values() map[string]string {
	return maps.Clone(p.values)
}

func (p *DefinePlugin) Apply(opts *api.BuildOptions) error {
	if opts.Define == nil {
		opts.Define = make(map[string]string, len(p.values))
	}
	for key, value := range p.values {
		if _, exists := opts.Define[key]; exists {
			return fmt.Errorf("%s: %s is already defined", p.id, key)
		}
		opts.Define[key] = value
	}
	return nil
}
