// Package observability provides structured logging, metrics and tracing
// for rule books. Metrics and tracing use OpenTelemetry and have no-op
// implementations for when they are disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds the book identity to a logger.
func EnrichLogger(logger *slog.Logger, bookID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("book", bookID))
}

// LogRuleStored logs a rule insert or update.
func LogRuleStored(logger *slog.Logger, ruleID, mappingID string, position int64, created bool) {
	if logger == nil {
		return
	}
	logger.Info("rule stored",
		slog.String("rule_id", ruleID),
		slog.String("mapping_id", mappingID),
		slog.Int64("position", position),
		slog.Bool("created", created),
	)
}

func LogRuleDeleted(logger *slog.Logger, ruleID string) {
	if logger == nil {
		return
	}
	logger.Info("rule deleted", slog.String("rule_id", ruleID))
}

func LogRuleMoved(logger *slog.Logger, ruleID string, position int64) {
	if logger == nil {
		return
	}
	logger.Info("rule moved",
		slog.String("rule_id", ruleID),
		slog.Int64("position", position),
	)
}

// LogClassify logs the outcome of classifying one record.
func LogClassify(logger *slog.Logger, matched bool, ruleID, mappingID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("record classified",
		slog.Bool("matched", matched),
		slog.String("rule_id", ruleID),
		slog.String("mapping_id", mappingID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEvaluationError logs a rule that could not be evaluated against a record.
func LogEvaluationError(logger *slog.Logger, ruleID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("rule evaluation failed",
		slog.String("rule_id", ruleID),
		slog.String("error", err.Error()),
	)
}

func LogSchemaApplied(logger *slog.Logger, fields int, rulesChecked int) {
	if logger == nil {
		return
	}
	logger.Info("schema applied",
		slog.Int("fields", fields),
		slog.Int("rules_checked", rulesChecked),
	)
}

// TimedOperation returns a function reporting the elapsed milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
