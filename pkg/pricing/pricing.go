package pricing

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed bedrock.yaml
var embeddedTable []byte

// Entry holds per-1000-token prices for a single model.
type Entry struct {
	Model             string  `yaml:"model"`
	InputPerThousand  float64 `yaml:"input_per_thousand"`
	OutputPerThousand float64 `yaml:"output_per_thousand"`
}

type tableFile struct {
	Updated      string  `yaml:"updated"`
	DefaultModel string  `yaml:"default_model"`
	Models       []Entry `yaml:"models"`
}

// Table is an immutable model-to-pricing lookup. Unknown model identifiers
// fall back to the designated default entry.
type Table struct {
	entries      map[string]Entry
	defaultModel string
	updated      string
}

// Default returns the table built from the embedded pricing data.
func Default() *Table {
	t, err := LoadBytes(embeddedTable)
	if err != nil {
		panic("pricing: embedded table invalid: " + err.Error())
	}
	return t
}

// Load reads a YAML pricing file and returns the table.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file %s: %w", path, err)
	}
	t, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("pricing file %s: %w", path, err)
	}
	return t, nil
}

// LoadBytes parses YAML pricing data from raw bytes.
func LoadBytes(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pricing data: %w", err)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("no models defined")
	}
	if f.DefaultModel == "" {
		return nil, fmt.Errorf("missing default_model")
	}

	entries := make(map[string]Entry, len(f.Models))
	for _, e := range f.Models {
		if e.Model == "" {
			return nil, fmt.Errorf("entry with empty model identifier")
		}
		entries[e.Model] = e
	}
	if _, ok := entries[f.DefaultModel]; !ok {
		return nil, fmt.Errorf("default_model %q has no pricing entry", f.DefaultModel)
	}

	return &Table{entries: entries, defaultModel: f.DefaultModel, updated: f.Updated}, nil
}

// Entry returns the pricing entry for a model identifier, falling back to
// the default entry for unrecognized identifiers.
func (t *Table) Entry(modelID string) Entry {
	if e, ok := t.entries[modelID]; ok {
		return e
	}
	return t.entries[t.defaultModel]
}

// Has reports whether the table has a dedicated entry for the model.
func (t *Table) Has(modelID string) bool {
	_, ok := t.entries[modelID]
	return ok
}

// DefaultModel returns the identifier of the fallback pricing tier.
func (t *Table) DefaultModel() string { return t.defaultModel }

// Updated returns the pricing data revision date.
func (t *Table) Updated() string { return t.updated }

// Entries returns all entries sorted by model identifier.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// Cost computes the USD cost of the given token usage for a model.
func (t *Table) Cost(modelID string, inputTokens, outputTokens int64) float64 {
	e := t.Entry(modelID)
	return float64(inputTokens)/1000*e.InputPerThousand + float64(outputTokens)/1000*e.OutputPerThousand
}
