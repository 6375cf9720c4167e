package refdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed data/uk.yaml
var defaultDoc []byte

//go:embed schema.json
var schemaDoc string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("refdata.schema.json", strings.NewReader(schemaDoc)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("refdata.schema.json")
	})
	return schema, schemaErr
}

// Default returns the embedded UK 2005-2024 dataset.
func Default() (*Dataset, error) {
	return Parse(defaultDoc)
}

// Load reads and validates a reference data YAML file.
func Load(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Parse validates raw against the reference data schema and decodes it.
func Parse(raw []byte) (*Dataset, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var ds Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}
	return &ds, nil
}

// Validate checks a YAML document against the embedded JSON schema.
func Validate(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse reference data: %w", err)
	}
	// Round-trip through JSON so year keys become strings and numbers
	// take the types the validator expects.
	js, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return fmt.Errorf("reference data: %w", err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return fmt.Errorf("reference data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("invalid reference data: %w", err)
	}
	return nil
}

func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = stringKeys(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = stringKeys(val)
		}
		return out
	}
	return v
}

// Marshal encodes a dataset as YAML, the inverse of Parse.
func Marshal(ds *Dataset) ([]byte, error) {
	return yaml.Marshal(ds)
}
