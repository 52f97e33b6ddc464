package driver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/totalrecall/internal/chunker"
)

// Format is the encoding of a conversation collection.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	// FormatJSONL holds one conversation object per line.
	FormatJSONL
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSONL:
		return "jsonl"
	default:
		return "json"
	}
}

// DetectFormat picks a Format from the file extension, defaulting to JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatJSON
	}
}

// collectionSchema accepts either a bare array of conversations or an object
// wrapping one under "conversations". Absent fields are allowed; present ones
// must have the right type.
const collectionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "message": {
      "type": "object",
      "properties": {
        "role": {"type": ["string", "null"]},
        "content": {"type": ["string", "null"]}
      }
    },
    "conversation": {
      "type": "object",
      "properties": {
        "id": {"type": ["string", "null"]},
        "title": {"type": ["string", "null"]},
        "messages": {
          "type": ["array", "null"],
          "items": {"$ref": "#/definitions/message"}
        }
      }
    },
    "conversations": {
      "type": "array",
      "items": {"$ref": "#/definitions/conversation"}
    }
  },
  "oneOf": [
    {"$ref": "#/definitions/conversations"},
    {
      "type": "object",
      "required": ["conversations"],
      "properties": {"conversations": {"$ref": "#/definitions/conversations"}}
    }
  ]
}`

var schema = jsonschema.MustCompileString("collection.schema.json", collectionSchema)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 10 * 1024 * 1024

// Decode parses a conversation collection. Missing messages decode as an empty
// run rather than an error.
func Decode(data []byte, format Format) ([]chunker.Conversation, error) {
	doc, err := normalize(data, format)
	if err != nil {
		return nil, &InvalidInputError{Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return nil, &InvalidInputError{Err: schemaCause(err)}
	}

	var list any
	switch v := doc.(type) {
	case []any:
		list = v
	case map[string]any:
		list = v["conversations"]
	}

	raw, err := json.Marshal(list)
	if err != nil {
		return nil, &InvalidInputError{Err: err}
	}
	var convs []chunker.Conversation
	if err := json.Unmarshal(raw, &convs); err != nil {
		return nil, &InvalidInputError{Err: err}
	}

	for i := range convs {
		if convs[i].Messages == nil {
			convs[i].Messages = []chunker.Message{}
		}
	}
	return convs, nil
}

// normalize turns any supported encoding into the generic JSON value model the
// schema validator works on.
func normalize(data []byte, format Format) (any, error) {
	switch format {
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		// Round-trip through JSON so numbers, timestamps and maps take the
		// same shapes as in a JSON document.
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
		return decodeJSON(raw)
	case FormatJSONL:
		return decodeJSONL(data)
	default:
		return decodeJSON(data)
	}
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if dec.More() {
		return nil, errors.New("parse json: trailing data after collection")
	}
	return v, nil
}

func decodeJSONL(data []byte) (any, error) {
	list := []any{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		v, err := decodeJSON(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		list = append(list, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return list, nil
}

// schemaCause flattens a validation error to its most specific message.
func schemaCause(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Errorf("%s: %s", loc, ve.Message)
}
