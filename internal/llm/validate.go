package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const canonicalSchemaURL = "canonical-document.json"

var compiledCanonical = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileSchema(canonicalSchemaURL, BuildCanonicalJSONSchema())
})

func compileSchema(url string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile(url)
}

// ValidateCandidate checks raw model output against the canonical document
// schema. The schema is compiled on first use.
func ValidateCandidate(raw []byte) error {
	schema, err := compiledCanonical()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("candidate does not match schema: %w", err)
	}
	return nil
}
