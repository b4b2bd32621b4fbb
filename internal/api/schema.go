package api

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// querySchema describes every accepted POST /query shape, canonical and
// legacy. Unknown top-level keys are legacy filters, so they may be any
// scalar or an array of scalars, but not an object.
const querySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": ["object", "null"],
  "definitions": {
    "scalar": {"type": ["string", "number", "boolean", "null"]},
    "filterValue": {
      "anyOf": [
        {"$ref": "#/definitions/scalar"},
        {"type": "array", "items": {"$ref": "#/definitions/scalar"}}
      ]
    },
    "filterMap": {
      "type": ["object", "null"],
      "additionalProperties": {"$ref": "#/definitions/filterValue"}
    },
    "count": {
      "anyOf": [
        {"type": "integer"},
        {"type": "string", "pattern": "^\\s*-?[0-9]+\\s*$"},
        {"type": "null"}
      ]
    }
  },
  "properties": {
    "filters": {"$ref": "#/definitions/filterMap"},
    "additional_filters": {"$ref": "#/definitions/filterMap"},
    "ranges": {
      "type": ["object", "null"],
      "additionalProperties": {
        "type": "object",
        "additionalProperties": {"$ref": "#/definitions/scalar"}
      }
    },
    "sort": {
      "anyOf": [
        {"type": ["string", "null"]},
        {
          "type": "object",
          "properties": {
            "field": {"type": "string"},
            "order": {"type": "string"}
          },
          "required": ["field"]
        }
      ]
    },
    "sort_by": {"type": ["string", "null"]},
    "sort_order": {"type": ["string", "null"]},
    "limit": {"$ref": "#/definitions/count"},
    "offset": {"$ref": "#/definitions/count"},
    "search": {"type": ["string", "null"]}
  },
  "additionalProperties": {"$ref": "#/definitions/filterValue"}
}`

// RequestValidator checks request bodies against querySchema.
type RequestValidator struct {
	schema *gojsonschema.Schema
}

// NewRequestValidator compiles the request schema.
func NewRequestValidator() (*RequestValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(querySchema))
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	return &RequestValidator{schema: schema}, nil
}

// Validate returns one message per schema violation, or nil when body is
// valid. A body that is not JSON at all is reported as an error.
func (v *RequestValidator) Validate(body []byte) ([]string, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return msgs, nil
}
