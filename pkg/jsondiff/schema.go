package jsondiff

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// patchSchema is a trimmed JSON Patch schema covering the operations this
// generator can emit. add and replace require a value member; remove must
// not carry one.
const patchSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "title": "JSON Patch (add/remove/replace subset)",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["op", "path"],
    "additionalProperties": false,
    "properties": {
      "op": {"enum": ["add", "remove", "replace"]},
      "path": {"type": "string", "pattern": "^(/|$)"},
      "value": {}
    },
    "oneOf": [
      {
        "properties": {"op": {"enum": ["add", "replace"]}},
        "required": ["op", "path", "value"]
      },
      {
        "properties": {"op": {"enum": ["remove"]}},
        "not": {"required": ["value"]}
      }
    ]
  }
}`

var (
	patchSchemaLoader     gojsonschema.JSONLoader
	patchSchemaLoaderOnce sync.Once
)

type schemaValidationError struct {
	issues []string
}

func (e schemaValidationError) Error() string {
	if len(e.issues) == 0 {
		return "patch failed schema validation"
	}
	return strings.Join(e.issues, "; ")
}

// Validate checks that ops serialize to a well-formed JSON Patch document.
// It exists for diagnostics and tests; Diff output satisfies it by
// construction.
func Validate(ops []Operation) error {
	patchSchemaLoaderOnce.Do(func() {
		patchSchemaLoader = gojsonschema.NewStringLoader(patchSchema)
	})

	if ops == nil {
		ops = []Operation{}
	}
	payload, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	result, err := gojsonschema.Validate(patchSchemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("validate patch: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, issue := range result.Errors() {
		issues = append(issues, issue.String())
	}
	return schemaValidationError{issues: issues}
}
