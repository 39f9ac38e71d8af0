package ops

import (
	"fmt"
	"sort"

	"github.com/nonibytes/rulebook/rulebook/rule"
)

// FieldUsage describes how stored rules reference one schema field.
type FieldUsage struct {
	Path       string         `json:"path"`
	Type       rule.FieldType `json:"type"`
	Rules      int            `json:"rules"`
	Conditions int            `json:"conditions"`
	Operators  []rule.CmpOp   `json:"operators"`
}

// DiscoverFields reports usage for every schema field, including unused ones.
// Paths referenced by rules but absent from schema are reported with an empty type.
func DiscoverFields(rows []RuleRow, schema rule.Schema) ([]FieldUsage, error) {
	usage := make(map[string]*FieldUsage, len(schema))
	ops := make(map[string]map[rule.CmpOp]struct{})
	for _, path := range schema.Fields() {
		usage[path] = &FieldUsage{Path: path, Type: schema[path]}
	}

	for _, row := range rows {
		seen := make(map[string]struct{})
		for _, text := range row.Expressions {
			tree, err := rule.Parse(text)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", row.ID, err)
			}
			for _, c := range rule.Conditions(tree) {
				path := c.Path()
				u, ok := usage[path]
				if !ok {
					u = &FieldUsage{Path: path}
					usage[path] = u
				}
				u.Conditions++
				if _, dup := seen[path]; !dup {
					seen[path] = struct{}{}
					u.Rules++
				}
				if ops[path] == nil {
					ops[path] = make(map[rule.CmpOp]struct{})
				}
				ops[path][c.Op] = struct{}{}
			}
		}
	}

	out := make([]FieldUsage, 0, len(usage))
	for path, u := range usage {
		for op := range ops[path] {
			u.Operators = append(u.Operators, op)
		}
		sort.Slice(u.Operators, func(i, j int) bool { return u.Operators[i] < u.Operators[j] })
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
