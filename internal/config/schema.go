package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the JSON Schema the configuration file must satisfy.
// Structural constraints live here so a malformed catalog fails with
// field-level messages before unmarshalling; semantic checks (durations,
// policy names) live in Config.Validate.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["benches"],
  "properties": {
    "repo": {"type": "string"},
    "bench_timeout": {"type": "string"},
    "jobs": {"type": "integer", "minimum": 1},
    "sampler": {
      "type": "object",
      "properties": {
        "policy": {"type": "string", "enum": ["uniform", "lognormal"]},
        "mean": {"type": "number"},
        "sigma": {"type": "number", "exclusiveMinimum": 0},
        "max_retries": {"type": "integer", "minimum": 1}
      },
      "additionalProperties": false
    },
    "benches": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["parameter", "output", "benches"],
        "properties": {
          "parameter": {"type": "string", "minLength": 1},
          "output": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "benches": {
            "type": "object",
            "minProperties": 1,
            "additionalProperties": {
              "type": "object",
              "required": ["commit", "bench_function"],
              "properties": {
                "commit": {"type": "string", "minLength": 1},
                "bench_function": {"type": "string", "minLength": 1},
                "elf": {"type": "string"}
              },
              "additionalProperties": false
            }
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// validateDocument checks raw configuration bytes against the schema.
func validateDocument(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(messages, "; "))
}
