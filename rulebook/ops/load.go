package ops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nonibytes/rulebook/rulebook/storage"
)

// LoadAll returns every rule ordered by (position, id).
func LoadAll(ctx context.Context, q Querier, sqlt storage.SQL) ([]RuleRow, error) {
	rows, err := q.QueryContext(ctx, sqlt.AllRules)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	return scanRules(rows)
}

// GetByID loads one rule. found is false when no rule has that id.
func GetByID(ctx context.Context, q Querier, sqlt storage.SQL, id string) (row RuleRow, found bool, err error) {
	row, err = scanRule(q.QueryRowContext(ctx, sqlt.GetRule, id))
	if errors.Is(err, sql.ErrNoRows) {
		return RuleRow{}, false, nil
	}
	if err != nil {
		return RuleRow{}, false, fmt.Errorf("get rule: %w", err)
	}
	return row, true, nil
}

// Count returns the number of stored rules.
func Count(ctx context.Context, q Querier, sqlt storage.SQL) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, sqlt.CountRules).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rules: %w", err)
	}
	return n, nil
}
