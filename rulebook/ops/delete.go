package ops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nonibytes/rulebook/rulebook/storage"
)

// DeleteByID removes a rule and shifts every later rule up by one position.
// It returns false when the rule does not exist.
func DeleteByID(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, id string) (bool, error) {
	var position, createdAt int64
	err := tx.QueryRowContext(ctx, sqlt.FindRule, id).Scan(&position, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find rule: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqlt.DeleteRule, id); err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlt.CompactAfter, position); err != nil {
		return false, fmt.Errorf("compact positions: %w", err)
	}
	return true, nil
}
