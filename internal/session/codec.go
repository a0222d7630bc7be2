package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// SchemaVersion is the current on-disk document version. Version 1
// documents lacked fractions and baseline regions and are upgraded on
// read.
const SchemaVersion = 2

// document wraps a Session with the version marker.
type document struct {
	Version int `json:"version"`
	Session
}

const sessionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "id", "name", "traces"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "source": {"type": "string"},
    "created_at": {"type": "string"},
    "updated_at": {"type": "string"},
    "traces": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "samples"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "unit": {"type": "string"},
          "samples": {
            "type": "array",
            "minItems": 2,
            "items": {
              "type": "object",
              "required": ["x", "y"],
              "properties": {
                "x": {"type": "number"},
                "y": {"type": "number"}
              }
            }
          }
        }
      }
    },
    "fractions": {
      "type": "object",
      "properties": {
        "marks": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["x", "label"],
            "properties": {
              "x": {"type": "number"},
              "label": {"type": "string"}
            }
          }
        }
      }
    },
    "selected": {"type": "array", "items": {"type": "string"}},
    "primary": {"type": "string"},
    "x_range": {
      "type": "object",
      "required": ["start", "end"],
      "properties": {
        "start": {"type": "number"},
        "end": {"type": "number"}
      }
    },
    "regions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["variable", "start", "end"],
        "properties": {
          "variable": {"type": "string", "minLength": 1},
          "baseline_variable": {"type": "string"},
          "start": {"type": "number"},
          "end": {"type": "number"},
          "net_of_baseline": {"type": "boolean"}
        }
      }
    },
    "params": {"type": "object"}
  }
}`

var compiledSchema = jsonschema.MustCompileString("session.schema.json", sessionSchema)

// Encode serializes the session as the current document version.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil session", ErrInvalid)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(document{Version: SchemaVersion, Session: *s}, "", "  ")
}

// Decode parses and schema-checks a session document. The version marker
// is sniffed before the full parse so unknown future versions fail with a
// clear message instead of a field soup.
func Decode(data []byte) (*Session, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalid)
	}
	version := gjson.GetBytes(data, "version")
	if !version.Exists() {
		return nil, fmt.Errorf("%w: missing version marker", ErrInvalid)
	}
	if v := version.Int(); v > SchemaVersion {
		return nil, fmt.Errorf("%w: document version %d is newer than supported %d", ErrInvalid, v, SchemaVersion)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := compiledSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, compactSchemaError(err))
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	s := doc.Session
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// compactSchemaError trims the multi-line validator output to its leaf
// cause for API responses.
func compactSchemaError(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if loc == "" {
		return leaf.Message
	}
	return fmt.Sprintf("%s: %s", loc, leaf.Message)
}
