package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrSchemaViolation wraps structural problems found by ValidateJSON.
var ErrSchemaViolation = errors.New("settings schema violation")

// schemaJSON is the structural contract for settings documents. It rejects
// unknown keys and wrong value types before Unmarshal ever sees them.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "input_paths":        {"type": "array", "items": {"type": "string"}},
    "depth":              {"type": "integer", "minimum": 1},
    "subfolder":          {"type": "string"},
    "n_files":            {"type": "integer", "minimum": 0},
    "include_files":      {"type": "array", "items": {"type": "string"}},
    "ex_files":           {"type": "array", "items": {"type": "string"}},
    "extensions":         {"type": "array", "items": {"type": "string"}},
    "ex_authors":         {"type": "array", "items": {"type": "string"}},
    "ex_emails":          {"type": "array", "items": {"type": "string"}},
    "ex_revisions":       {"type": "array", "items": {"type": "string"}},
    "ex_messages":        {"type": "array", "items": {"type": "string"}},
    "since":              {"type": "string", "pattern": "^([0-9]{4}-[0-9]{2}-[0-9]{2})?$"},
    "until":              {"type": "string", "pattern": "^([0-9]{4}-[0-9]{2}-[0-9]{2})?$"},
    "copy_move":          {"type": "integer", "minimum": 0, "maximum": 3},
    "blame_exclusions":   {"type": "string", "enum": ["hide", "show", "remove"]},
    "scaled_percentages": {"type": "boolean"},
    "comments":           {"type": "boolean"},
    "empty_lines":        {"type": "boolean"},
    "whitespace":         {"type": "boolean"},
    "sort_key":           {"type": "string", "enum": ["blame-lines", "insertions", "commits", "name"]},
    "merge_rules":        {"type": "array", "items": {"type": "string"}},
    "global_identities":  {"type": "boolean"},
    "max_workers":        {"type": "integer", "minimum": 1},
    "blame_workers":      {"type": "integer", "minimum": 1},
    "log_level":          {"type": "string"},
    "log_format":         {"type": "string"}
  }
}`

// ValidateJSON checks a raw JSON settings document against the schema,
// returning every violation joined into one error.
func ValidateJSON(doc []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validating settings: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}
