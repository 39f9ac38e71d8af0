package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RuleRow is one row of the rules table with its expressions decoded.
type RuleRow struct {
	ID           string
	Label        string
	MappingID    string
	MappingLabel string
	Position     int64
	Expressions  []string
	CreatedAtMS  int64
	UpdatedAtMS  int64
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRule reads the columns listed in storage.RuleColumns.
func scanRule(s scanner) (RuleRow, error) {
	var r RuleRow
	var exprJSON string
	if err := s.Scan(&r.ID, &r.Label, &r.MappingID, &r.MappingLabel, &r.Position, &exprJSON, &r.CreatedAtMS, &r.UpdatedAtMS); err != nil {
		return RuleRow{}, err
	}
	if err := json.Unmarshal([]byte(exprJSON), &r.Expressions); err != nil {
		return RuleRow{}, fmt.Errorf("rule %s: decode expressions: %w", r.ID, err)
	}
	return r, nil
}

func scanRules(rows *sql.Rows) ([]RuleRow, error) {
	defer rows.Close()
	var out []RuleRow
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
