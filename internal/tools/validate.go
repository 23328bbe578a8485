package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaCache memoizes compiled schemas keyed by their source text.
// Tool schemas are static, so the cache never needs invalidation.
var schemaCache sync.Map

// CompileSchema compiles a JSON schema, caching by source text.
func CompileSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schema)
	if cached, ok := schemaCache.Load(key); ok {
		if compiled, ok := cached.(*jsonschema.Schema); ok {
			return compiled, nil
		}
	}

	compiled, err := jsonschema.CompileString("tool.schema.json", key)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(key, compiled)
	return compiled, nil
}

// ValidateOutput validates a tool's raw output against its declared output
// schema. Tools without a schema fail with ErrNoOutputSchema.
func ValidateOutput(tool Tool, output map[string]any) error {
	schema := tool.OutputSchema()
	if len(schema) == 0 {
		return ErrNoOutputSchema
	}

	compiled, err := CompileSchema(schema)
	if err != nil {
		return fmt.Errorf("compile output schema for %s: %w", tool.Name(), err)
	}

	// Round-trip through JSON so numeric types normalize the way the
	// validator expects.
	payload, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("encode output of %s: %w", tool.Name(), err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode output of %s: %w", tool.Name(), err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
