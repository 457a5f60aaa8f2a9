// Package refgraph is the in-process reference inference backend. It
// executes a declarative graph definition deterministically, giving the
// batching layer something real to probe and run against without a GPU
// runtime. Outputs are a pure function of the graph seed and the fed
// inputs, so demux ordering is observable in tests.
package refgraph

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// GraphDef describes the nodes of a reference model. Input and output
// widths are per-batch-item feature widths; the batch dimension is
// implicit. Consts are scalar nodes fetchable without any inputs, such
// as the recurrent memory size.
type GraphDef struct {
	Inputs  map[string]int     `yaml:"inputs"`
	Outputs map[string]int     `yaml:"outputs"`
	Consts  map[string]float32 `yaml:"consts"`
	Seed    int64              `yaml:"seed"`
}

// Validate checks structural sanity of the definition.
func (d *GraphDef) Validate() error {
	if len(d.Outputs) == 0 {
		return fmt.Errorf("refgraph: graph defines no outputs")
	}
	for name, w := range d.Inputs {
		if w < 0 {
			return fmt.Errorf("refgraph: input %q has negative width %d", name, w)
		}
	}
	for name, w := range d.Outputs {
		if w <= 0 {
			return fmt.Errorf("refgraph: output %q has non-positive width %d", name, w)
		}
	}
	return nil
}

// ParseManifest reads a yaml graph manifest, the authoring format.
func ParseManifest(data []byte) (*GraphDef, error) {
	var def GraphDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("refgraph: parse manifest: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Save writes the compiled model blob. The blob format is owned by this
// backend and not reinterpreted elsewhere.
func (d *GraphDef) Save(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(d); err != nil {
		return fmt.Errorf("refgraph: encode graph: %w", err)
	}
	return nil
}

// Load reads a compiled model blob.
func Load(r io.Reader) (*GraphDef, error) {
	var def GraphDef
	if err := gob.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("refgraph: decode graph: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads a compiled model blob from disk.
func LoadFile(path string) (*GraphDef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("refgraph: open model: %w", err)
	}
	defer f.Close()
	return Load(f)
}
