package rulebook

import (
	"context"

	"github.com/nonibytes/rulebook/rulebook/ops"
)

type BatchOpKind int

const (
	batchPut BatchOpKind = iota
	batchDelete
)

type BatchOp struct {
	Kind BatchOpKind
	Rule RuleInput // for put
	ID   string    // for delete
}

// Batch collects puts and deletes that are applied in one transaction.
type Batch struct {
	ops []BatchOp
}

func NewBatch() Batch {
	return Batch{ops: make([]BatchOp, 0)}
}

func (b *Batch) Put(in RuleInput) error {
	if in.MappingID == "" {
		return New(ErrSchema, "rule must have a mapping id")
	}
	b.ops = append(b.ops, BatchOp{Kind: batchPut, Rule: in})
	return nil
}

func (b *Batch) Delete(id string) error {
	if id == "" {
		return New(ErrSchema, "rule id cannot be empty")
	}
	b.ops = append(b.ops, BatchOp{Kind: batchDelete, ID: id})
	return nil
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) Empty() bool {
	return len(b.ops) == 0
}

// Execute is implemented on Book to keep storage access internal
func (b *Batch) Execute(ctx context.Context, bk *Book) (int, error) {
	return bk.Batch(ctx, *b)
}

// Batch applies every operation in order inside one transaction and returns
// the number of operations that changed the book. Nothing is written if any
// operation fails.
func (b *Book) Batch(ctx context.Context, batch Batch) (int, error) {
	if batch.Empty() {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, Wrap(ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	sqlt := b.adapter.SQL()
	nowMS := b.nowMS()
	applied := 0
	for _, op := range batch.ops {
		switch op.Kind {
		case batchPut:
			in := op.Rule
			prep, err := ops.PreparePut(b.schema, in.ID, in.Label, in.MappingID, in.MappingLabel, in.Lines)
			if err != nil {
				return 0, prepareError(in.ID, err)
			}
			if _, _, err := ops.ExecutePut(ctx, tx, sqlt, prep, nowMS); err != nil {
				return 0, Wrap(ErrSQL, "execute put", err)
			}
			applied++
		case batchDelete:
			found, err := ops.DeleteByID(ctx, tx, sqlt, op.ID)
			if err != nil {
				return 0, Wrap(ErrSQL, "delete rule", err)
			}
			if found {
				applied++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, Wrap(ErrSQL, "commit", err)
	}
	b.invalidate()
	b.opts.Metrics.RecordRuleWrite(ctx, "batch")
	return applied, nil
}
