package rule

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// FieldType specifies the declared type of a field
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldInt      FieldType = "int"
	FieldFloat    FieldType = "float"
	FieldDateTime FieldType = "datetime"
	FieldBool     FieldType = "bool"
)

// Schema maps "db.field" to its declared type.
type Schema map[string]FieldType

var fieldPathRe = regexp.MustCompile(`^[\pL_][\pL\d_]*\.[\pL_][\pL\d_]*$`)

// Validate checks that every key is a db.field path with a known type
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema must have at least one field")
	}
	for _, path := range s.Fields() {
		if !fieldPathRe.MatchString(path) {
			return fmt.Errorf("invalid field path %q (want db.field)", path)
		}
		switch t := s[path]; t {
		case FieldString, FieldInt, FieldFloat, FieldDateTime, FieldBool:
		default:
			return fmt.Errorf("unknown type %q for field %q", t, path)
		}
	}
	return nil
}

// Lookup returns the type of db.field.
func (s Schema) Lookup(db, field string) (FieldType, bool) {
	t, ok := s[db+"."+field]
	return t, ok
}

// Fields returns the field paths in sorted order.
func (s Schema) Fields() []string {
	out := make([]string, 0, len(s))
	for path := range s {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// ToJSON serializes the schema to JSON
func (s Schema) ToJSON() ([]byte, error) {
	return json.Marshal(map[string]FieldType(s))
}

// SchemaFromJSON parses and validates a JSON schema object.
func SchemaFromJSON(data []byte) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema json: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// SchemaFromYAML parses and validates a YAML schema mapping.
func SchemaFromYAML(data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
