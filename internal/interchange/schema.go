package interchange

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://promptlib.local/schemas/library-document.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	errSchema      error
)

// documentSchema compiles the embedded schema on first use.
func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			errSchema = fmt.Errorf("parsing document schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			errSchema = fmt.Errorf("adding document schema: %w", err)
			return
		}

		compiledSchema, errSchema = c.Compile(schemaURL)
	})

	return compiledSchema, errSchema
}

// Schema returns the raw JSON Schema that import documents must satisfy.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}
