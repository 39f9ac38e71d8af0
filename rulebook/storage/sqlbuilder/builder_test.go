package sqlbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderPlaceholders(t *testing.T) {
	q := New(PlaceholderQuestion)
	assert.Equal(t, "?", q.Arg(1))
	assert.Equal(t, "?", q.Arg("x"))
	assert.Equal(t, []any{1, "x"}, q.Args())

	d := New(PlaceholderDollar)
	for i := 1; i <= 12; i++ {
		assert.Equal(t, "$"+itoa(i), d.Arg(i))
	}
	assert.Equal(t, 12, d.Len())
	assert.Equal(t, "$12", "$"+itoa(12))
}

func TestBuilderWhere(t *testing.T) {
	b := New(PlaceholderDollar)
	assert.Equal(t, "", b.WhereSQL())

	b.Where("mapping_id = " + b.Arg("m1"))
	b.Where("(position > " + b.Arg(3) + " OR id > " + b.Arg("abc") + ")")
	assert.Equal(t, " WHERE mapping_id = $1 AND (position > $2 OR id > $3)", b.WhereSQL())
	assert.Equal(t, []any{"m1", 3, "abc"}, b.Args())
}

func TestItoa(t *testing.T) {
	assert.Equal(t, "0", itoa(0))
	assert.Equal(t, "7", itoa(7))
	assert.Equal(t, "1024", itoa(1024))
}
