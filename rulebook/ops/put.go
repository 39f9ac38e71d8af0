package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nonibytes/rulebook/rulebook/rule"
	"github.com/nonibytes/rulebook/rulebook/storage"
)

// PutPrepared holds a validated rule ready to be written.
type PutPrepared struct {
	ID           string
	Label        string
	MappingID    string
	MappingLabel string
	Expressions  []string // canonical text
	ExprJSON     []byte
}

// LineError reports which rule line failed to compile.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// PreparePut compiles every line against schema and assigns an id when id is empty.
func PreparePut(schema rule.Schema, id, label, mappingID, mappingLabel string, lines []string) (*PutPrepared, error) {
	if strings.TrimSpace(mappingID) == "" {
		return nil, fmt.Errorf("mapping id cannot be empty")
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("rule must have at least one line")
	}
	if id == "" {
		id = uuid.NewString()
	}

	prep := &PutPrepared{
		ID:           id,
		Label:        label,
		MappingID:    mappingID,
		MappingLabel: mappingLabel,
		Expressions:  make([]string, 0, len(lines)),
	}
	for i, line := range lines {
		f, err := rule.Compile(line, schema)
		if err != nil {
			return nil, &LineError{Line: i + 1, Err: err}
		}
		prep.Expressions = append(prep.Expressions, f.String())
	}

	b, err := json.Marshal(prep.Expressions)
	if err != nil {
		return nil, fmt.Errorf("encode expressions: %w", err)
	}
	prep.ExprJSON = b
	return prep, nil
}

// ExecutePut inserts a new rule at the end of the ordering or updates an
// existing one in place. It returns the rule's position.
func ExecutePut(ctx context.Context, tx *sql.Tx, sqlt storage.SQL, prep *PutPrepared, nowMS int64) (created bool, position int64, err error) {
	var createdAt int64
	err = tx.QueryRowContext(ctx, sqlt.FindRule, prep.ID).Scan(&position, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		var maxPos int64
		if err := tx.QueryRowContext(ctx, sqlt.MaxPosition).Scan(&maxPos); err != nil {
			return false, 0, fmt.Errorf("max position: %w", err)
		}
		position = maxPos + 1
		_, err = tx.ExecContext(ctx, sqlt.InsertRule,
			prep.ID, prep.Label, prep.MappingID, prep.MappingLabel, position, string(prep.ExprJSON), nowMS, nowMS)
		if err != nil {
			return false, 0, fmt.Errorf("insert rule: %w", err)
		}
		return true, position, nil
	case err != nil:
		return false, 0, fmt.Errorf("find rule: %w", err)
	}

	_, err = tx.ExecContext(ctx, sqlt.UpdateRule,
		prep.ID, prep.Label, prep.MappingID, prep.MappingLabel, string(prep.ExprJSON), nowMS)
	if err != nil {
		return false, 0, fmt.Errorf("update rule: %w", err)
	}
	return false, position, nil
}
