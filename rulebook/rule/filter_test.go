package rule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	schema := Schema{"sec.price": FieldFloat, "research.last_trade": FieldDateTime}

	f, err := Compile(`$AND(?sec.price:=/2,4/?,?research.last_trade==(*,*,*,8,*,*)?)`, schema)
	require.NoError(t, err)
	assert.Equal(t, `$AND(?sec.price := /2,4/?,?research.last_trade == (*,*,*,8,*,*)?)`, f.String())
	assert.Len(t, f.Conditions(), 2)

	ctx := Context{
		"sec":      {"price": 4},
		"research": {"last_trade": time.Date(2001, 2, 3, 8, 4, 5, 0, time.UTC)},
	}
	got, err := f.Evaluate(nil, ctx)
	require.NoError(t, err)
	assert.True(t, got)

	ctx["sec"]["price"] = 4.0001
	got, err = f.Evaluate(NewEvaluator(), ctx)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCompileErrors(t *testing.T) {
	schema := Schema{"sec.price": FieldFloat}

	_, err := Compile(`$NOT(?a==1?,?b==2?)`, schema)
	assert.True(t, IsKind(err, ErrArity))

	_, err = Compile(`?filter.names==["A","B",1]?`, schema)
	assert.True(t, IsKind(err, ErrSyntax))

	_, err = Compile(`?sec.volume==1?`, schema)
	assert.True(t, errors.Is(err, ErrUnknownField))

	_, err = Compile(`?sec.price<>1?`, schema)
	assert.True(t, IsKind(err, ErrValidation))
}

func TestErrorString(t *testing.T) {
	_, err := Compile(`?sec.price<>1?`, Schema{"sec.price": FieldFloat})
	require.Error(t, err)
	assert.Equal(t, "validation: operator and value not allowed for float field (field=sec.price op=<> value=1)", err.Error())

	_, err = TokenizeLogical("?a.b")
	require.Error(t, err)
	assert.Equal(t, "syntax: condition opened with '?' is never closed at position 0: unterminated condition", err.Error())
}

func TestWalkSkipsChildren(t *testing.T) {
	tree := mustParse(t, `$AND(?a.b==1?,$NOT(?a.c==2?))`)

	var visited int
	Walk(tree, func(n Node) bool {
		visited++
		op, ok := n.(*Operator)
		return !ok || op.Kind != OpNot
	})
	assert.Equal(t, 3, visited) // $AND, a.b, $NOT
}
