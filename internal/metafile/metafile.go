// Package metafile decodes the esbuild metafile emitted alongside a build.
package metafile

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

type Metafile struct {
	Inputs  map[string]Input  `json:"inputs"`
	Outputs map[string]Output `json:"outputs"`
}

type Input struct {
	Bytes   int      `json:"bytes"`
	Imports []Import `json:"imports"`
}

type Output struct {
	Bytes      int                     `json:"bytes"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
	CSSBundle  string                  `json:"cssBundle,omitempty"`
	Imports    []Import                `json:"imports"`
	Inputs     map[string]InputContrib `json:"inputs"`
}

type Import struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Parse decodes the metafile JSON string returned by esbuild.
func Parse(raw string) (*Metafile, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty metafile, enable Metafile in the build options")
	}

	var meta Metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metafile: %w", err)
	}
	return &meta, nil
}

// OutputPaths returns output paths in sorted order.
func (m *Metafile) OutputPaths() []string {
	return slices.Sorted(maps.Keys(m.Outputs))
}

// TotalBytes sums the size of every output.
func (m *Metafile) TotalBytes() int {
	total := 0
	for _, out := range m.Outputs {
		total += out.Bytes
	}
	return total
}
