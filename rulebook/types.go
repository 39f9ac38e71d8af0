package rulebook

import (
	"log/slog"
	"time"

	"github.com/nonibytes/rulebook/rulebook/observability"
	"github.com/nonibytes/rulebook/rulebook/ops"
)

// BookOptions configures book behavior
type BookOptions struct {
	Now             func() time.Time
	Logger          *slog.Logger
	Metrics         observability.MetricsRecorder
	Spans           observability.SpanManager
	DefaultPageSize int
}

// DefaultBookOptions returns options with no logging, metrics or tracing.
func DefaultBookOptions() BookOptions {
	return BookOptions{
		Now:             time.Now,
		Metrics:         observability.NoopMetrics{},
		Spans:           observability.NoopSpanManager{},
		DefaultPageSize: DefaultPageSize,
	}
}

func (o BookOptions) withDefaults() BookOptions {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Metrics == nil {
		o.Metrics = observability.NoopMetrics{}
	}
	if o.Spans == nil {
		o.Spans = observability.NoopSpanManager{}
	}
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = DefaultPageSize
	}
	return o
}

// RuleInput is a rule as submitted by a caller. An empty ID creates a new rule.
type RuleInput struct {
	ID           string   `json:"id,omitempty"`
	Label        string   `json:"label"`
	MappingID    string   `json:"mapping_id"`
	MappingLabel string   `json:"mapping_label"`
	Lines        []string `json:"lines"`
}

// Rule is a stored rule. Lines hold canonical rule text.
type Rule struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	MappingID    string   `json:"mapping_id"`
	MappingLabel string   `json:"mapping_label"`
	Position     int64    `json:"position"`
	Lines        []string `json:"lines"`
	CreatedAtMS  int64    `json:"created_at_ms"`
	UpdatedAtMS  int64    `json:"updated_at_ms"`
}

// ListOptions configures ListRules
type ListOptions struct {
	MappingID string
	Limit     int
	After     string // cursor token or ""
}

type RulePage struct {
	Rules      []Rule `json:"rules"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// Match is the rule that classified a record.
type Match struct {
	RuleID       string `json:"rule_id"`
	RuleLabel    string `json:"rule_label"`
	MappingID    string `json:"mapping_id"`
	MappingLabel string `json:"mapping_label"`
	Position     int64  `json:"position"`
}

type FieldUsage = ops.FieldUsage

func ruleFromRow(r ops.RuleRow) Rule {
	return Rule{
		ID:           r.ID,
		Label:        r.Label,
		MappingID:    r.MappingID,
		MappingLabel: r.MappingLabel,
		Position:     r.Position,
		Lines:        r.Expressions,
		CreatedAtMS:  r.CreatedAtMS,
		UpdatedAtMS:  r.UpdatedAtMS,
	}
}
