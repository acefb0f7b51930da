// Package validation implements the schema-driven validation engine.
// A form's schema is an arbitrary caller-supplied JSON document mapping
// field names to field specs; the engine interprets it to validate
// submission payloads field by field.
package validation

import (
	"github.com/tidwall/gjson"
)

// FieldType is the closed set of recognized field types. Anything else
// parses to FieldTypeUnknown, which always validates: unrecognized types
// are a pass-through, not an error.
type FieldType int

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeString
	FieldTypeText
	FieldTypeEmail
	FieldTypePassword
	FieldTypeDate
	FieldTypeNumber
	FieldTypeDropdown
)

// ParseFieldType maps a schema type string to its FieldType.
func ParseFieldType(s string) FieldType {
	switch s {
	case "string":
		return FieldTypeString
	case "text":
		return FieldTypeText
	case "email":
		return FieldTypeEmail
	case "password":
		return FieldTypePassword
	case "date":
		return FieldTypeDate
	case "number":
		return FieldTypeNumber
	case "dropdown":
		return FieldTypeDropdown
	default:
		return FieldTypeUnknown
	}
}

// FieldSpec is the validation contract for one schema field.
// Optional constraints are pointers so "unset" stays distinguishable from
// zero; defaults are applied at validation time.
type FieldSpec struct {
	Type      FieldType
	Required  bool
	MinLength *int
	MaxLength *int
	Min       *float64
	Max       *float64
	Options   []string
}

// Field pairs a field name with its spec.
type Field struct {
	Name string
	Spec FieldSpec
}

// Schema is an ordered list of fields. Order follows the schema document's
// key order, which determines validation error order.
type Schema []Field

// ParseSchema interprets a raw JSON schema document into a Schema,
// preserving document key order. Parsing is tolerant: a non-object document
// yields an empty schema and malformed field specs degrade to
// unknown-typed fields rather than failing.
func ParseSchema(raw []byte) Schema {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil
	}

	var schema Schema
	doc.ForEach(func(key, value gjson.Result) bool {
		schema = append(schema, Field{
			Name: key.String(),
			Spec: parseFieldSpec(value),
		})
		return true
	})
	return schema
}

func parseFieldSpec(v gjson.Result) FieldSpec {
	if !v.IsObject() {
		return FieldSpec{Type: FieldTypeUnknown}
	}

	spec := FieldSpec{
		Type:     ParseFieldType(v.Get("type").String()),
		Required: v.Get("required").Bool(),
	}

	if r := v.Get("minLength"); r.Exists() {
		n := int(r.Int())
		spec.MinLength = &n
	}
	if r := v.Get("maxLength"); r.Exists() {
		n := int(r.Int())
		spec.MaxLength = &n
	}
	if r := v.Get("min"); r.Exists() {
		f := r.Float()
		spec.Min = &f
	}
	if r := v.Get("max"); r.Exists() {
		f := r.Float()
		spec.Max = &f
	}
	if r := v.Get("options"); r.IsArray() {
		for _, opt := range r.Array() {
			spec.Options = append(spec.Options, opt.String())
		}
	}
	return spec
}
