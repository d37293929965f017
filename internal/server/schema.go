package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const applySchemaJSON = `{
  "type": "object",
  "required": ["original", "diff"],
  "additionalProperties": false,
  "properties": {
    "original": {"type": "string"},
    "diff": {"type": "string"}
  }
}`

const previewSchemaJSON = `{
  "type": "object",
  "required": ["original", "diff"],
  "additionalProperties": false,
  "properties": {
    "original": {"type": "string"},
    "diff": {"type": "string"},
    "side_by_side": {"type": "boolean"},
    "width": {"type": "integer", "minimum": 20, "maximum": 1000}
  }
}`

const parseSchemaJSON = `{
  "type": "object",
  "required": ["diff"],
  "additionalProperties": false,
  "properties": {
    "diff": {"type": "string"}
  }
}`

const batchSchemaJSON = `{
  "type": "object",
  "required": ["documents", "diff"],
  "additionalProperties": false,
  "properties": {
    "documents": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "diff": {"type": "string"}
  }
}`

type compiledSchema struct {
	source string
	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

func (c *compiledSchema) load() (*gojsonschema.Schema, error) {
	c.once.Do(func() {
		c.schema, c.err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(c.source))
	})
	return c.schema, c.err
}

var (
	applySchema   = &compiledSchema{source: applySchemaJSON}
	previewSchema = &compiledSchema{source: previewSchemaJSON}
	parseSchema   = &compiledSchema{source: parseSchemaJSON}
	batchSchema   = &compiledSchema{source: batchSchemaJSON}
)

// validationError lists every schema violation found in a request body.
type validationError struct {
	issues []string
}

func (e validationError) Error() string {
	if len(e.issues) == 0 {
		return "request failed schema validation"
	}
	return strings.Join(e.issues, "; ")
}

func validate(c *compiledSchema, body []byte) error {
	schema, err := c.load()
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return validationError{issues: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return validationError{issues: issues}
}
