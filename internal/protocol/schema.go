package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const envelopeSchemaURL = "https://a2ui.schemas.local/envelope.schema.json"

// EnvelopeSchema describes both wire forms of an inbound message.
const EnvelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "$defs": {
    "surfaceId": { "type": "string", "minLength": 1 },
    "component": {
      "type": "object",
      "required": ["id", "component"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "component": { "type": "object", "minProperties": 1, "maxProperties": 1 }
      }
    },
    "entry": {
      "type": "object",
      "required": ["key"],
      "properties": {
        "key": { "type": "string" },
        "valueString": { "type": "string" },
        "valueNumber": { "type": "number" },
        "valueBoolean": { "type": "boolean" },
        "valueMap": { "type": "array", "items": { "$ref": "#/$defs/entry" } }
      }
    },
    "surfaceUpdate": {
      "type": "object",
      "required": ["surfaceId", "components"],
      "properties": {
        "surfaceId": { "$ref": "#/$defs/surfaceId" },
        "components": { "type": "array", "items": { "$ref": "#/$defs/component" } }
      }
    },
    "dataModelUpdate": {
      "type": "object",
      "required": ["surfaceId", "contents"],
      "properties": {
        "surfaceId": { "$ref": "#/$defs/surfaceId" },
        "path": { "type": "string" },
        "contents": { "type": "array", "items": { "$ref": "#/$defs/entry" } }
      }
    },
    "beginRendering": {
      "type": "object",
      "required": ["surfaceId"],
      "anyOf": [ { "required": ["root"] }, { "required": ["rootComponentId"] } ],
      "properties": {
        "surfaceId": { "$ref": "#/$defs/surfaceId" },
        "root": { "type": "string", "minLength": 1 },
        "rootComponentId": { "type": "string", "minLength": 1 }
      }
    },
    "deleteSurface": {
      "type": "object",
      "required": ["surfaceId"],
      "properties": { "surfaceId": { "$ref": "#/$defs/surfaceId" } }
    }
  },
  "oneOf": [
    { "required": ["type"], "properties": { "type": { "const": "surfaceUpdate" } }, "$ref": "#/$defs/surfaceUpdate" },
    { "required": ["type"], "properties": { "type": { "const": "dataModelUpdate" } }, "$ref": "#/$defs/dataModelUpdate" },
    { "required": ["type"], "properties": { "type": { "const": "beginRendering" } }, "$ref": "#/$defs/beginRendering" },
    { "required": ["type"], "properties": { "type": { "const": "deleteSurface" } }, "$ref": "#/$defs/deleteSurface" },
    { "required": ["surfaceUpdate"], "not": { "required": ["type"] }, "properties": { "surfaceUpdate": { "$ref": "#/$defs/surfaceUpdate" } } },
    { "required": ["dataModelUpdate"], "not": { "required": ["type"] }, "properties": { "dataModelUpdate": { "$ref": "#/$defs/dataModelUpdate" } } },
    { "required": ["beginRendering"], "not": { "required": ["type"] }, "properties": { "beginRendering": { "$ref": "#/$defs/beginRendering" } } },
    { "required": ["deleteSurface"], "not": { "required": ["type"] }, "properties": { "deleteSurface": { "$ref": "#/$defs/deleteSurface" } } }
  ]
}`

// Validator checks raw inbound lines against EnvelopeSchema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the envelope schema.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(envelopeSchemaURL, strings.NewReader(EnvelopeSchema)); err != nil {
		return nil, fmt.Errorf("failed to load envelope schema: %w", err)
	}
	schema, err := c.Compile(envelopeSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile envelope schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate reports schema violations wrapped in ErrMalformedMessage.
func (v *Validator) Validate(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: schema validation failed: %v", ErrMalformedMessage, err)
	}
	return nil
}
