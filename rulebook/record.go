package rulebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nonibytes/rulebook/rulebook/rule"
)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DecodeRecord decodes a JSON object of the form {"db": {"field": value}}
// into an evaluation context. Numbers stay json.Number. Fields typed as
// datetime in schema are converted to time.Time; other values pass through.
func DecodeRecord(data []byte, schema rule.Schema) (rule.Context, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, Wrap(ErrRecord, "record json", err)
	}
	if raw == nil {
		return nil, RecordError("record must be a JSON object")
	}

	ctx := make(rule.Context, len(raw))
	for db, v := range raw {
		fields, ok := v.(map[string]any)
		if !ok {
			return nil, RecordError(fmt.Sprintf("record entry %q must be an object", db))
		}
		for name, val := range fields {
			if typ, ok := schema.Lookup(db, name); ok && typ == rule.FieldDateTime && val != nil {
				t, err := parseDateTime(val)
				if err != nil {
					return nil, Wrap(ErrRecord, fmt.Sprintf("field %s.%s", db, name), err)
				}
				fields[name] = t
			}
		}
		ctx[db] = fields
	}
	return ctx, nil
}

func parseDateTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case json.Number:
		ms, err := x.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("epoch milliseconds must be an integer: %s", x)
		}
		return time.UnixMilli(ms).UTC(), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized datetime %q", x)
	default:
		return time.Time{}, fmt.Errorf("datetime must be a string or epoch milliseconds, got %T", v)
	}
}
