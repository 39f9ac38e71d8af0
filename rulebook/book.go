package rulebook

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/nonibytes/rulebook/rulebook/observability"
	"github.com/nonibytes/rulebook/rulebook/ops"
	"github.com/nonibytes/rulebook/rulebook/rule"
	"github.com/nonibytes/rulebook/rulebook/storage"
)

// Book is an open rule book: an ordered set of rules that assign records to mappings.
type Book struct {
	adapter storage.Adapter
	db      *sql.DB
	opts    BookOptions
	logger  *slog.Logger
	eval    *rule.Evaluator

	mu       sync.RWMutex
	schema   rule.Schema
	compiled []compiledRule
	cached   bool
}

type compiledRule struct {
	row     ops.RuleRow
	filters []*rule.Filter
}

// Create creates a new book with the given schema
func Create(ctx context.Context, adapter storage.Adapter, schema rule.Schema, opts BookOptions) (*Book, error) {
	if err := schema.Validate(); err != nil {
		return nil, Wrap(ErrSchema, "invalid schema", err)
	}
	schemaJSON, err := schema.ToJSON()
	if err != nil {
		return nil, Wrap(ErrSchema, "encode schema", err)
	}

	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrIO, "connect to database", err)
	}
	if err := adapter.CreateBook(ctx, db, schemaJSON); err != nil {
		db.Close()
		return nil, Wrap(ErrSQL, "create book", err)
	}
	return newBook(adapter, db, schema, opts), nil
}

// Open opens an existing book
func Open(ctx context.Context, adapter storage.Adapter, opts BookOptions) (*Book, error) {
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, Wrap(ErrIO, "connect to database", err)
	}
	schemaJSON, err := adapter.OpenBook(ctx, db)
	if err != nil {
		db.Close()
		return nil, Wrap(ErrSQL, "open book", err)
	}
	schema, err := rule.SchemaFromJSON(schemaJSON)
	if err != nil {
		db.Close()
		return nil, Wrap(ErrSchema, "stored schema", err)
	}
	return newBook(adapter, db, schema, opts), nil
}

func newBook(adapter storage.Adapter, db *sql.DB, schema rule.Schema, opts BookOptions) *Book {
	opts = opts.withDefaults()
	return &Book{
		adapter: adapter,
		db:      db,
		opts:    opts,
		logger:  observability.EnrichLogger(opts.Logger, adapter.BookID()),
		eval:    rule.NewEvaluator(rule.WithClock(opts.Now)),
		schema:  schema,
	}
}

func (b *Book) Close() error {
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return Wrap(ErrIO, "close database", err)
		}
	}
	return b.adapter.Close()
}

// Schema returns the current schema. Callers must not modify it.
func (b *Book) Schema() rule.Schema {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schema
}

// ApplySchema replaces the schema after checking that every stored rule
// is still valid under it.
func (b *Book) ApplySchema(ctx context.Context, schema rule.Schema) error {
	if err := schema.Validate(); err != nil {
		return Wrap(ErrSchema, "invalid schema", err)
	}
	schemaJSON, err := schema.ToJSON()
	if err != nil {
		return Wrap(ErrSchema, "encode schema", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := ops.LoadAll(ctx, b.db, b.adapter.SQL())
	if err != nil {
		return Wrap(ErrSQL, "load rules", err)
	}
	for _, row := range rows {
		for _, text := range row.Expressions {
			if _, err := rule.Compile(text, schema); err != nil {
				return &Error{Kind: ErrRuleRejected, Message: "rule is invalid under new schema", RuleID: row.ID, Cause: err}
			}
		}
	}

	if err := b.adapter.SetSchema(ctx, b.db, schemaJSON); err != nil {
		return Wrap(ErrSQL, "store schema", err)
	}
	b.schema = schema
	b.invalidate()
	observability.LogSchemaApplied(b.logger, len(schema), len(rows))
	return nil
}

// PutRule inserts a new rule at the end of the ordering, or replaces the
// rule with the same ID in place.
func (b *Book) PutRule(ctx context.Context, in RuleInput) (r Rule, err error) {
	ctx, span := b.opts.Spans.StartRuleSpan(ctx, "put", in.ID)
	defer func() { b.opts.Spans.EndSpanWithError(span, err) }()

	b.mu.Lock()
	defer b.mu.Unlock()

	prep, err := ops.PreparePut(b.schema, in.ID, in.Label, in.MappingID, in.MappingLabel, in.Lines)
	if err != nil {
		return Rule{}, prepareError(in.ID, err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return Rule{}, Wrap(ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	created, pos, err := ops.ExecutePut(ctx, tx, b.adapter.SQL(), prep, b.nowMS())
	if err != nil {
		return Rule{}, Wrap(ErrSQL, "execute put", err)
	}
	if err := tx.Commit(); err != nil {
		return Rule{}, Wrap(ErrSQL, "commit", err)
	}
	b.invalidate()

	observability.LogRuleStored(b.logger, prep.ID, prep.MappingID, pos, created)
	b.opts.Metrics.RecordRuleWrite(ctx, "put")
	return b.getRule(ctx, prep.ID)
}

// prepareError maps a compile failure to a book error kind.
func prepareError(id string, err error) *Error {
	switch {
	case rule.IsKind(err, rule.ErrSyntax), rule.IsKind(err, rule.ErrArity):
		return &Error{Kind: ErrRuleParse, Message: "parse rule", RuleID: id, Cause: err}
	case rule.IsKind(err, rule.ErrValidation):
		return &Error{Kind: ErrRuleRejected, Message: "rule rejected by schema", RuleID: id, Cause: err}
	default:
		return &Error{Kind: ErrRuleRejected, Message: "invalid rule", RuleID: id, Cause: err}
	}
}

func (b *Book) GetRule(ctx context.Context, id string) (Rule, error) {
	return b.getRule(ctx, id)
}

func (b *Book) getRule(ctx context.Context, id string) (Rule, error) {
	row, found, err := ops.GetByID(ctx, b.db, b.adapter.SQL(), id)
	if err != nil {
		return Rule{}, Wrap(ErrSQL, "get rule", err)
	}
	if !found {
		return Rule{}, NotFoundError(id)
	}
	return ruleFromRow(row), nil
}

// DeleteRule removes a rule and closes the gap in the ordering. It returns
// false when no rule has that ID.
func (b *Book) DeleteRule(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return false, Wrap(ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	found, err := ops.DeleteByID(ctx, tx, b.adapter.SQL(), id)
	if err != nil {
		return false, Wrap(ErrSQL, "delete rule", err)
	}
	if !found {
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, Wrap(ErrSQL, "commit", err)
	}
	b.invalidate()

	observability.LogRuleDeleted(b.logger, id)
	b.opts.Metrics.RecordRuleWrite(ctx, "delete")
	return true, nil
}

// MoveRule moves a rule to index to of the ordering, clamped into range,
// and returns the index it ended up at.
func (b *Book) MoveRule(ctx context.Context, id string, to int64) (pos int64, err error) {
	ctx, span := b.opts.Spans.StartRuleSpan(ctx, "move", id)
	defer func() { b.opts.Spans.EndSpanWithError(span, err) }()

	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, Wrap(ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	pos, found, err := ops.Move(ctx, tx, b.adapter.SQL(), id, to, b.nowMS())
	if err != nil {
		return 0, Wrap(ErrSQL, "move rule", err)
	}
	if !found {
		return 0, NotFoundError(id)
	}
	if err := tx.Commit(); err != nil {
		return 0, Wrap(ErrSQL, "commit", err)
	}
	b.invalidate()

	observability.LogRuleMoved(b.logger, id, pos)
	b.opts.Metrics.RecordRuleWrite(ctx, "move")
	return pos, nil
}

// ListRules returns one page of rules in position order.
func (b *Book) ListRules(ctx context.Context, opts ListOptions) (RulePage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = b.opts.DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	hash := ops.HashListing(b.adapter.BookID(), opts.MappingID)
	lq := ops.ListQuery{MappingID: opts.MappingID, Limit: limit}
	if opts.After != "" {
		p, err := ops.ResolveCursor(opts.After, hash)
		if err != nil {
			return RulePage{}, Wrap(ErrCursor, "resolve cursor", err)
		}
		lq.After = &p
	}

	rows, more, err := ops.ListPage(ctx, b.db, b.adapter.PlaceholderStyle(), b.adapter.SQL(), lq)
	if err != nil {
		return RulePage{}, Wrap(ErrSQL, "list rules", err)
	}

	page := RulePage{Rules: make([]Rule, 0, len(rows)), HasMore: more}
	for _, row := range rows {
		page.Rules = append(page.Rules, ruleFromRow(row))
	}
	if more {
		last := rows[len(rows)-1]
		tok, err := ops.EncodeCursor(ops.CursorPosition{
			Payload: ops.CursorPayload{Position: last.Position, ID: last.ID},
			Hash:    hash,
		})
		if err != nil {
			return RulePage{}, Wrap(ErrCursor, "encode cursor", err)
		}
		page.NextCursor = tok
	}
	return page, nil
}

// Count returns the number of rules in the book.
func (b *Book) Count(ctx context.Context) (int64, error) {
	n, err := ops.Count(ctx, b.db, b.adapter.SQL())
	if err != nil {
		return 0, Wrap(ErrSQL, "count rules", err)
	}
	return n, nil
}

// EvaluateRule reports whether every line of the rule holds for record.
func (b *Book) EvaluateRule(ctx context.Context, id string, record rule.Context) (bool, error) {
	rules, err := b.loadCompiled(ctx)
	if err != nil {
		return false, err
	}
	for i := range rules {
		if rules[i].row.ID == id {
			return b.evalRule(ctx, &rules[i], record)
		}
	}
	return false, NotFoundError(id)
}

// Classify returns the first rule in position order whose lines all hold for
// record. Rules that cannot be evaluated against record are logged and skipped.
func (b *Book) Classify(ctx context.Context, record rule.Context) (m Match, ok bool, err error) {
	ctx, span := b.opts.Spans.StartClassifySpan(ctx, b.adapter.BookID())
	defer func() { b.opts.Spans.EndSpanWithError(span, err) }()
	start := time.Now()

	rules, err := b.loadCompiled(ctx)
	if err != nil {
		return Match{}, false, err
	}
	for i := range rules {
		cr := &rules[i]
		matched, evalErr := b.evalRule(ctx, cr, record)
		if evalErr != nil {
			observability.LogEvaluationError(b.logger, cr.row.ID, evalErr)
			continue
		}
		if matched {
			m = Match{
				RuleID:       cr.row.ID,
				RuleLabel:    cr.row.Label,
				MappingID:    cr.row.MappingID,
				MappingLabel: cr.row.MappingLabel,
				Position:     cr.row.Position,
			}
			ok = true
			break
		}
	}

	elapsed := time.Since(start)
	b.opts.Metrics.RecordClassification(ctx, ok, elapsed)
	observability.LogClassify(b.logger, ok, m.RuleID, m.MappingID, float64(elapsed.Microseconds())/1000)
	return m, ok, nil
}

func (b *Book) evalRule(ctx context.Context, cr *compiledRule, record rule.Context) (matched bool, err error) {
	_, span := b.opts.Spans.StartRuleSpan(ctx, "evaluate", cr.row.ID)
	start := time.Now()
	defer func() {
		b.opts.Metrics.RecordEvaluation(ctx, cr.row.ID, time.Since(start), matched, err)
		b.opts.Spans.EndSpanWithError(span, err)
	}()

	for _, f := range cr.filters {
		ok, err := f.Evaluate(b.eval, record)
		if err != nil {
			return false, &Error{Kind: ErrRecord, Message: "evaluate rule", RuleID: cr.row.ID, Cause: err}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// loadCompiled returns the compiled rules in position order, loading them
// once per write generation.
func (b *Book) loadCompiled(ctx context.Context) ([]compiledRule, error) {
	b.mu.RLock()
	if b.cached {
		rules := b.compiled
		b.mu.RUnlock()
		return rules, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cached {
		return b.compiled, nil
	}

	rows, err := ops.LoadAll(ctx, b.db, b.adapter.SQL())
	if err != nil {
		return nil, Wrap(ErrSQL, "load rules", err)
	}
	rules := make([]compiledRule, 0, len(rows))
	for _, row := range rows {
		cr := compiledRule{row: row, filters: make([]*rule.Filter, 0, len(row.Expressions))}
		for _, text := range row.Expressions {
			f, err := rule.Compile(text, b.schema)
			if err != nil {
				return nil, &Error{Kind: ErrRuleRejected, Message: "stored rule does not compile", RuleID: row.ID, Cause: err}
			}
			cr.filters = append(cr.filters, f)
		}
		rules = append(rules, cr)
	}
	b.compiled = rules
	b.cached = true
	return rules, nil
}

// invalidate drops the compiled rule cache. Callers hold b.mu.
func (b *Book) invalidate() {
	b.compiled = nil
	b.cached = false
}

// DiscoverFields reports, for every schema field, how stored rules use it.
func (b *Book) DiscoverFields(ctx context.Context) ([]FieldUsage, error) {
	rows, err := ops.LoadAll(ctx, b.db, b.adapter.SQL())
	if err != nil {
		return nil, Wrap(ErrSQL, "load rules", err)
	}
	usage, err := ops.DiscoverFields(rows, b.Schema())
	if err != nil {
		return nil, Wrap(ErrRuleParse, "discover fields", err)
	}
	return usage, nil
}

func (b *Book) Optimize(ctx context.Context) error {
	if err := b.adapter.Optimize(ctx, b.db); err != nil {
		return Wrap(ErrSQL, "optimize", err)
	}
	return nil
}

func (b *Book) nowMS() int64 {
	return b.opts.Now().UnixMilli()
}
