package rulebook_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/nonibytes/rulebook/rulebook"
	"github.com/nonibytes/rulebook/rulebook/rule"
	"github.com/nonibytes/rulebook/rulebook/storage/sqlite"
)

var bookSchema = rule.Schema{
	"sec.type":     rule.FieldString,
	"sec.currency": rule.FieldString,
	"sec.rating":   rule.FieldInt,
	"pos.amount":   rule.FieldFloat,
	"pos.opened":   rule.FieldDateTime,
	"pos.hedged":   rule.FieldBool,
}

func monotonicNow(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

func newBook(t *testing.T) (*rulebook.Book, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "book.db")
	opts := rulebook.DefaultBookOptions()
	opts.Now = monotonicNow(time.Unix(1700000000, 0))

	bk, err := rulebook.Create(context.Background(), sqlite.New(dbPath), bookSchema, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bk.Close() })
	return bk, dbPath
}

func put(t *testing.T, bk *rulebook.Book, id, mapping string, lines ...string) rulebook.Rule {
	t.Helper()
	r, err := bk.PutRule(context.Background(), rulebook.RuleInput{
		ID: id, Label: "rule " + id, MappingID: mapping, MappingLabel: "Mapping " + mapping, Lines: lines,
	})
	require.NoError(t, err)
	return r
}

func ids(rules []rulebook.Rule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.ID)
	}
	return out
}

func TestPutGetDelete_SQLite(t *testing.T) {
	bk, _ := newBook(t)
	ctx := context.Background()

	r := put(t, bk, "", "equity", `?sec.type=="EQ"?`, `$OR(?sec.rating>=3?,?pos.hedged==TRUE?)`)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, int64(0), r.Position)
	assert.Equal(t, []string{`?sec.type == "EQ"?`, `$OR(?sec.rating >= 3?,?pos.hedged == TRUE?)`}, r.Lines)
	assert.Equal(t, r.CreatedAtMS, r.UpdatedAtMS)

	got, err := bk.GetRule(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	updated := put(t, bk, r.ID, "bond", `?sec.type=="BD"?`)
	assert.Equal(t, int64(0), updated.Position)
	assert.Equal(t, r.CreatedAtMS, updated.CreatedAtMS)
	assert.Greater(t, updated.UpdatedAtMS, r.UpdatedAtMS)
	assert.Equal(t, "bond", updated.MappingID)

	ok, err := bk.DeleteRule(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = bk.DeleteRule(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = bk.GetRule(ctx, r.ID)
	assert.True(t, rulebook.IsKind(err, rulebook.ErrNotFound))
}

func TestPutRejectsInvalidRules(t *testing.T) {
	bk, _ := newBook(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   rulebook.RuleInput
		kind rulebook.ErrorKind
	}{
		{"syntax", rulebook.RuleInput{MappingID: "m", Lines: []string{`?sec.type == "EQ"`}}, rulebook.ErrRuleParse},
		{"arity", rulebook.RuleInput{MappingID: "m", Lines: []string{`$NOT(?sec.rating>1?,?sec.rating<5?)`}}, rulebook.ErrRuleParse},
		{"unknown field", rulebook.RuleInput{MappingID: "m", Lines: []string{`?sec.isin == "x"?`}}, rulebook.ErrRuleRejected},
		{"bad op for type", rulebook.RuleInput{MappingID: "m", Lines: []string{`?pos.hedged > TRUE?`}}, rulebook.ErrRuleRejected},
		{"no mapping", rulebook.RuleInput{Lines: []string{`?sec.rating > 1?`}}, rulebook.ErrRuleRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bk.PutRule(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, rulebook.IsKind(err, tt.kind), "got %v", err)
		})
	}
	n, err := bk.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrderingAndMove(t *testing.T) {
	bk, _ := newBook(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		put(t, bk, id, "m", `?sec.rating > 0?`)
	}

	pos, err := bk.MoveRule(ctx, "d", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos)

	pos, err = bk.MoveRule(ctx, "a", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)

	page, err := bk.ListRules(ctx, rulebook.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "c", "a"}, ids(page.Rules))

	_, err = bk.DeleteRule(ctx, "b")
	require.NoError(t, err)
	page, err = bk.ListRules(ctx, rulebook.ListOptions{})
	require.NoError(t, err)
	for i, r := range page.Rules {
		assert.Equal(t, int64(i), r.Position)
	}

	_, err = bk.MoveRule(ctx, "ghost", 0)
	assert.True(t, rulebook.IsKind(err, rulebook.ErrNotFound))
}

func TestListRulesPagination(t *testing.T) {
	bk, _ := newBook(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		mapping := "even"
		if i%2 == 1 {
			mapping = "odd"
		}
		put(t, bk, fmt.Sprintf("r%d", i), mapping, `?sec.rating > 0?`)
	}

	var all []string
	after := ""
	for {
		page, err := bk.ListRules(ctx, rulebook.ListOptions{Limit: 3, After: after})
		require.NoError(t, err)
		all = append(all, ids(page.Rules)...)
		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			break
		}
		after = page.NextCursor
	}
	assert.Equal(t, []string{"r0", "r1", "r2", "r3", "r4", "r5", "r6"}, all)

	odd, err := bk.ListRules(ctx, rulebook.ListOptions{MappingID: "odd", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3"}, ids(odd.Rules))
	require.True(t, odd.HasMore)

	_, err = bk.ListRules(ctx, rulebook.ListOptions{MappingID: "even", After: odd.NextCursor})
	assert.True(t, rulebook.IsKind(err, rulebook.ErrCursor))

	_, err = bk.ListRules(ctx, rulebook.ListOptions{After: "%%%"})
	assert.True(t, rulebook.IsKind(err, rulebook.ErrCursor))
}

func TestClassify(t *testing.T) {
	bk, _ := newBook(t)
	ctx := context.Background()
	put(t, bk, "usd-eq", "us-equity", `?sec.type == "EQ"?`, `?sec.currency == "USD"?`)
	put(t, bk, "any-eq", "equity", `?sec.type == "EQ"?`)
	put(t, bk, "big", "large", `?pos.amount > 1000000?`)

	rec := func(s string) rule.Context {
		c, err := rulebook.DecodeRecord([]byte(s), bk.Schema())
		require.NoError(t, err)
		return c
	}

	m, ok, err := bk.Classify(ctx, rec(`{"sec":{"type":"EQ","currency":"USD"},"pos":{"amount":5}}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rulebook.Match{RuleID: "usd-eq", RuleLabel: "rule usd-eq", MappingID: "us-equity", MappingLabel: "Mapping us-equity", Position: 0}, m)

	m, ok, err = bk.Classify(ctx, rec(`{"sec":{"type":"EQ","currency":"EUR"},"pos":{"amount":5}}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "equity", m.MappingID)

	// the first two rules cannot be evaluated without sec and are skipped
	m, ok, err = bk.Classify(ctx, rec(`{"pos":{"amount":2000000}}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "big", m.RuleID)

	_, ok, err = bk.Classify(ctx, rec(`{"sec":{"type":"BD","currency":"USD"},"pos":{"amount":1}}`))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = bk.MoveRule(ctx, "any-eq", 0)
	require.NoError(t, err)
	m, _, err = bk.Classify(ctx, rec(`{"sec":{"type":"EQ","currency":"USD"},"pos":{"amount":5}}`))
	require.NoError(t, err)
	assert.Equal(t, "any-eq", m.RuleID, "cache is invalidated by writes")
}

func TestEvaluateRule(t *testing.T) {
	bk, _ := newBook(t)
	ctx := context.Background()
	put(t, bk, "recent", "m", `?pos.opened > (2023,*,*,*,*,*)?`)

	ctxRec, err := rulebook.DecodeRecord([]byte(`{"pos":{"opened":"2024-01-15"}}`), bk.Schema())
	require.NoError(t, err)
	ok, err := bk.EvaluateRule(ctx, "recent", ctxRec)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = bk.EvaluateRule(ctx, "recent", rule.Context{"sec": {}})
	require.Error(t, err)
	assert.True(t, rulebook.IsKind(err, rulebook.ErrRecord))
	assert.ErrorIs(t, err, rule.ErrMissingContext)

	_, err = bk.EvaluateRule(ctx, "nope", ctxRec)
	assert.True(t, rulebook.IsKind(err, rulebook.ErrNotFound))
}

func TestApplySchema(t *testing.T) {
	bk, dbPath := newBook(t)
	ctx := context.Background()
	put(t, bk, "r", "m", `?sec.rating > 1?`)

	narrowed := rule.Schema{"sec.type": rule.FieldString}
	err := bk.ApplySchema(ctx, narrowed)
	require.Error(t, err)
	assert.True(t, rulebook.IsKind(err, rulebook.ErrRuleRejected))

	widened := rule.Schema{"sec.rating": rule.FieldFloat, "sec.isin": rule.FieldString}
	require.NoError(t, bk.ApplySchema(ctx, widened))
	assert.Equal(t, widened, bk.Schema())
	put(t, bk, "isin", "m", `?sec.isin <> "US"?`)

	require.NoError(t, bk.Close())
	reopened, err := rulebook.Open(ctx, sqlite.New(dbPath), rulebook.DefaultBookOptions())
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, widened, reopened.Schema())
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	err = reopened.ApplySchema(ctx, rule.Schema{"bad": rule.FieldString})
	assert.True(t, rulebook.IsKind(err, rulebook.ErrSchema))
}

func TestBatch(t *testing.T) {
	bk, _ := newBook(t)
	ctx := context.Background()
	put(t, bk, "old", "m", `?sec.rating > 1?`)

	b := rulebook.NewBatch()
	require.NoError(t, b.Put(rulebook.RuleInput{ID: "x", MappingID: "m", Lines: []string{`?sec.rating > 2?`}}))
	require.NoError(t, b.Put(rulebook.RuleInput{ID: "y", MappingID: "m", Lines: []string{`?sec.rating > 3?`}}))
	require.NoError(t, b.Delete("old"))
	require.NoError(t, b.Delete("missing"))
	assert.Error(t, b.Delete(""))
	assert.Error(t, b.Put(rulebook.RuleInput{ID: "z"}))
	assert.Equal(t, 4, b.Len())

	n, err := b.Execute(ctx, bk)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := bk.ListRules(ctx, rulebook.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, ids(page.Rules))

	bad := rulebook.NewBatch()
	require.NoError(t, bad.Put(rulebook.RuleInput{ID: "w", MappingID: "m", Lines: []string{`?sec.rating > 9?`}}))
	require.NoError(t, bad.Put(rulebook.RuleInput{ID: "v", MappingID: "m", Lines: []string{`?sec.nope > 9?`}}))
	_, err = bk.Batch(ctx, bad)
	require.Error(t, err)
	_, err = bk.GetRule(ctx, "w")
	assert.True(t, rulebook.IsKind(err, rulebook.ErrNotFound), "failed batch writes nothing")
}

func TestDiscoverFields(t *testing.T) {
	bk, _ := newBook(t)
	ctx := context.Background()
	put(t, bk, "a", "m", `$AND(?sec.rating > 1?,?sec.rating < 5?)`, `?sec.type == "EQ"?`)
	put(t, bk, "b", "m", `?sec.rating :=[1,2]?`)

	usage, err := bk.DiscoverFields(ctx)
	require.NoError(t, err)
	require.Len(t, usage, len(bookSchema))

	byPath := map[string]rulebook.FieldUsage{}
	for _, u := range usage {
		byPath[u.Path] = u
	}
	assert.Equal(t, 2, byPath["sec.rating"].Rules)
	assert.Equal(t, 3, byPath["sec.rating"].Conditions)
	assert.Equal(t, []rule.CmpOp{rule.OpIn, rule.OpLt, rule.OpGt}, byPath["sec.rating"].Operators)
	assert.Zero(t, byPath["pos.hedged"].Rules)
	require.NoError(t, bk.Optimize(ctx))
}

func TestConcurrentClassify(t *testing.T) {
	bk, _ := newBook(t)
	ctx := context.Background()
	put(t, bk, "lo", "low", `?sec.rating < 3?`)
	put(t, bk, "hi", "high", `?sec.rating >= 3?`)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			m, ok, err := bk.Classify(ctx, rule.Context{"sec": {"rating": rating}})
			if err != nil {
				errs <- err
				return
			}
			want := "low"
			if rating >= 3 {
				want = "high"
			}
			if !ok || m.MappingID != want {
				errs <- fmt.Errorf("rating %d: got %q", rating, m.MappingID)
			}
		}(i % 6)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
