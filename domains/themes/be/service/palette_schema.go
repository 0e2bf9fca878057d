package service

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const paletteSchemaURL = "mem://clubportal/theme-palette.json"

const paletteSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": ["primary", "secondary", "background", "text", "accent", "border"],
  "properties": {
    "primary":    {"$ref": "#/$defs/hex"},
    "secondary":  {"$ref": "#/$defs/hex"},
    "background": {"$ref": "#/$defs/hex"},
    "text":       {"$ref": "#/$defs/hex"},
    "accent":     {"$ref": "#/$defs/hex"},
    "border":     {"$ref": "#/$defs/hex"}
  },
  "$defs": {
    "hex": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"}
  }
}`

// PaletteValidator checks palettes against a compiled JSON schema.
type PaletteValidator struct {
	schema *jsonschema.Schema
}

// MustPaletteValidator compiles the embedded schema; it panics only on a broken schema literal.
func MustPaletteValidator() *PaletteValidator {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(paletteSchemaURL, strings.NewReader(paletteSchema)); err != nil {
		panic(err)
	}
	return &PaletteValidator{schema: compiler.MustCompile(paletteSchemaURL)}
}

// Collect appends one message per invalid color to fields, keyed colors.<name>.
func (v *PaletteValidator) Collect(p Palette, fields FieldErrors) {
	raw, err := json.Marshal(p)
	if err != nil {
		fields["colors"] = append(fields["colors"], err.Error())
		return
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		fields["colors"] = append(fields["colors"], err.Error())
		return
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		fields["colors"] = append(fields["colors"], err.Error())
		return
	}
	for _, leaf := range leaves(verr) {
		key := "colors"
		if loc := strings.TrimPrefix(leaf.InstanceLocation, "/"); loc != "" {
			key = "colors." + loc
		}
		fields[key] = append(fields[key], "must be a #rrggbb hex color")
	}
}

func leaves(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
