package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nonibytes/rulebook/rulebook/storage"
)

// Move places rule id at index to of the ordering, clamping to into range,
// and renumbers the rules between the old and new index.
func Move(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, id string, to int64, nowMS int64) (position int64, found bool, err error) {
	rows, err := tx.QueryContext(ctx, sqlt.RuleIDsInOrder)
	if err != nil {
		return 0, false, fmt.Errorf("query order: %w", err)
	}
	var ids []string
	from := int64(-1)
	for rows.Next() {
		var rid string
		if err := rows.Scan(&rid); err != nil {
			rows.Close()
			return 0, false, err
		}
		if rid == id {
			from = int64(len(ids))
		}
		ids = append(ids, rid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, false, err
	}
	if from < 0 {
		return 0, false, nil
	}

	to = clamp(to, 0, int64(len(ids))-1)
	order := reorder(ids, from, to)

	lo, hi := min(from, to), max(from, to)
	for i := lo; i <= hi; i++ {
		if _, err := tx.ExecContext(ctx, sqlt.SetRulePosition, order[i], i, nowMS); err != nil {
			return 0, true, fmt.Errorf("set position: %w", err)
		}
	}
	return to, true, nil
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// reorder returns a copy of ids with the element at from moved to index to.
func reorder(ids []string, from, to int64) []string {
	out := make([]string, 0, len(ids))
	moving := ids[from]
	for i, id := range ids {
		if int64(i) == from {
			continue
		}
		out = append(out, id)
	}
	out = append(out[:to], append([]string{moving}, out[to:]...)...)
	return out
}
