package ops

import (
	"context"
	"fmt"

	"github.com/nonibytes/rulebook/rulebook/storage"
	"github.com/nonibytes/rulebook/rulebook/storage/sqlbuilder"
)

// ListQuery selects one page of rules in (position, id) order.
type ListQuery struct {
	MappingID string
	After     *CursorPayload
	Limit     int
}

// ListPage returns up to q.Limit rules and whether more follow.
func ListPage(ctx context.Context, q Querier, style sqlbuilder.PlaceholderStyle, sqlt storage.SQL, lq ListQuery) ([]RuleRow, bool, error) {
	if lq.Limit <= 0 {
		return nil, false, fmt.Errorf("limit must be positive")
	}
	b := sqlbuilder.New(style)
	if lq.MappingID != "" {
		b.Where("mapping_id = " + b.Arg(lq.MappingID))
	}
	if lq.After != nil {
		pos := b.Arg(lq.After.Position)
		pos2 := b.Arg(lq.After.Position)
		id := b.Arg(lq.After.ID)
		b.Where("(position > " + pos + " OR (position = " + pos2 + " AND id > " + id + "))")
	}
	query := sqlt.ListRulesSelect + b.WhereSQL() + " ORDER BY position, id LIMIT " + b.Arg(lq.Limit+1)

	rows, err := q.QueryContext(ctx, query, b.Args()...)
	if err != nil {
		return nil, false, fmt.Errorf("list rules: %w", err)
	}
	out, err := scanRules(rows)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(out) > lq.Limit
	if hasMore {
		out = out[:lq.Limit]
	}
	return out, hasMore, nil
}
