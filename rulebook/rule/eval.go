package rule

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Context is the record a rule is evaluated against: db -> field -> value.
type Context map[string]map[string]any

// Annotations holds the result of each condition of one evaluation, keyed by
// node identity. Trees are never written to during evaluation.
type Annotations map[*Condition]bool

// Evaluator evaluates rule trees against contexts
type Evaluator struct {
	now func() time.Time
}

// EvalOption configures an Evaluator
type EvalOption func(*Evaluator)

// WithClock sets the clock used for timedelta comparisons.
func WithClock(now func() time.Time) EvalOption {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEvaluator creates an evaluator. The default clock is time.Now.
func NewEvaluator(opts ...EvalOption) *Evaluator {
	e := &Evaluator{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEvaluator = NewEvaluator()

// Evaluate evaluates tree against ctx with the default evaluator.
func Evaluate(tree Node, ctx Context) (bool, error) {
	return defaultEvaluator.Evaluate(tree, ctx)
}

// Evaluate annotates every condition of tree and reduces it to one result.
func (e *Evaluator) Evaluate(tree Node, ctx Context) (bool, error) {
	ann, err := e.Annotate(tree, ctx)
	if err != nil {
		return false, err
	}
	return Reduce(tree, ann)
}

// Annotate evaluates every condition of tree against ctx. All leaves are
// evaluated; the first error aborts the walk. The clock is read once.
func (e *Evaluator) Annotate(tree Node, ctx Context) (Annotations, error) {
	now := e.now()
	ann := make(Annotations)

	var err error
	Walk(tree, func(n Node) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *Condition:
			var ok bool
			if ok, err = evalCondition(n, ctx, now); err == nil {
				ann[n] = ok
			}
		case *Raw:
			err = syntaxError(-1, "condition %q has not been parsed", n.Text)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return ann, nil
}

// Reduce folds the annotated leaves of tree through its operators.
func Reduce(tree Node, ann Annotations) (bool, error) {
	switch n := tree.(type) {
	case *Condition:
		v, ok := ann[n]
		if !ok {
			return false, evaluationError(n, nil, "condition was not annotated")
		}
		return v, nil
	case *Operator:
		results := make([]bool, 0, len(n.Args))
		for _, arg := range n.Args {
			v, err := Reduce(arg, ann)
			if err != nil {
				return false, err
			}
			results = append(results, v)
		}
		switch n.Kind {
		case OpAnd:
			return !slices.Contains(results, false), nil
		case OpOr:
			return slices.Contains(results, true), nil
		case OpNot:
			if len(results) != 1 {
				return false, arityError(n.Kind, len(results))
			}
			return !results[0], nil
		}
		return false, &Error{Kind: ErrEvaluation, Message: "unknown operator " + string(n.Kind), Pos: -1}
	case *Raw:
		return false, syntaxError(-1, "condition %q has not been parsed", n.Text)
	default:
		return false, &Error{Kind: ErrEvaluation, Message: "unknown node", Pos: -1}
	}
}

func evalCondition(c *Condition, ctx Context, now time.Time) (bool, error) {
	record, ok := ctx[c.DB]
	if !ok {
		return false, evaluationError(c, ErrMissingContext, "no %q in context", c.DB)
	}
	ref, ok := record[c.Field]
	if !ok {
		return false, evaluationError(c, ErrMissingContext, "no %q in context", c.Path())
	}

	switch v := c.Value.(type) {
	case StringValue:
		return evalString(c, v, ref)
	case NumberValue:
		r, ok := toFloat(ref)
		if !ok {
			return false, mismatch(c, ref, "number")
		}
		if res, ok := compareOrdered(r, v.Num, c.Op); ok {
			return res, nil
		}
	case RangeValue:
		r, ok := toFloat(ref)
		if !ok {
			return false, mismatch(c, ref, "number")
		}
		if c.Op == OpIn {
			return v.Low <= r && r <= v.High, nil
		}
	case StringListValue:
		return evalStringList(c, v, ref)
	case NumberListValue:
		return evalNumberList(c, v, ref)
	case DateTimeValue:
		t, ok := toTime(ref)
		if !ok {
			return false, mismatch(c, ref, "datetime")
		}
		if c.Op.Ordering() {
			return compareDateTime(v, t, c.Op), nil
		}
	case TimeDeltaValue:
		t, ok := toTime(ref)
		if !ok {
			return false, mismatch(c, ref, "datetime")
		}
		if res, ok := compareOrdered(now.Sub(t), v.Duration(), c.Op); ok {
			return res, nil
		}
	case BoolValue:
		b, ok := ref.(bool)
		if !ok {
			return false, mismatch(c, ref, "bool")
		}
		if c.Op == OpEq {
			return b == v.B, nil
		}
	}
	return false, evaluationError(c, ErrUnsupported, "no evaluation for %s value with %s", c.Value.Kind(), c.Op)
}

// evalString: "<>" asks whether the literal occurs in the reference, ":="
// whether the reference occurs in the literal.
func evalString(c *Condition, v StringValue, ref any) (bool, error) {
	s, ok := ref.(string)
	if !ok {
		return false, mismatch(c, ref, "string")
	}
	switch c.Op {
	case OpEq:
		return s == v.Text, nil
	case OpHas:
		return strings.Contains(s, v.Text), nil
	case OpIn:
		return strings.Contains(v.Text, s), nil
	}
	return false, evaluationError(c, ErrUnsupported, "no evaluation for string value with %s", c.Op)
}

func evalStringList(c *Condition, v StringListValue, ref any) (bool, error) {
	switch c.Op {
	case OpIn:
		s, ok := ref.(string)
		if !ok {
			return false, mismatch(c, ref, "string")
		}
		return slices.Contains(v.Items, s), nil
	case OpHas:
		for _, item := range v.Items {
			found, ok := containsString(ref, item)
			if !ok {
				return false, mismatch(c, ref, "string or collection")
			}
			if !found {
				return false, nil
			}
		}
		return true, nil
	}
	return false, evaluationError(c, ErrUnsupported, "no evaluation for list value with %s", c.Op)
}

func evalNumberList(c *Condition, v NumberListValue, ref any) (bool, error) {
	switch c.Op {
	case OpIn:
		r, ok := toFloat(ref)
		if !ok {
			return false, mismatch(c, ref, "number")
		}
		return slices.Contains(v.Items, r), nil
	case OpHas:
		nums, ok := toFloats(ref)
		if !ok {
			return false, mismatch(c, ref, "numeric collection")
		}
		for _, item := range v.Items {
			if !slices.Contains(nums, item) {
				return false, nil
			}
		}
		return true, nil
	}
	return false, evaluationError(c, ErrUnsupported, "no evaluation for list value with %s", c.Op)
}

// compareDateTime compares the reference against the literal component by
// component. Wildcards never decide; a full tie satisfies only <=, == and >=.
func compareDateTime(spec DateTimeValue, t time.Time, op CmpOp) bool {
	ref := [6]int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()}

	if op == OpEq {
		for i, p := range spec.Parts {
			if !p.Any && p.N != ref[i] {
				return false
			}
		}
		return true
	}

	for i, p := range spec.Parts {
		if p.Any || p.N == ref[i] {
			continue
		}
		refBefore := ref[i] < p.N
		if op == OpLt || op == OpLte {
			return refBefore
		}
		return !refBefore
	}
	return op == OpLte || op == OpGte
}

func compareOrdered[T cmp.Ordered](ref, lit T, op CmpOp) (result, ok bool) {
	c := cmp.Compare(ref, lit)
	switch op {
	case OpLt:
		return c < 0, true
	case OpLte:
		return c <= 0, true
	case OpEq:
		return c == 0, true
	case OpGt:
		return c > 0, true
	case OpGte:
		return c >= 0, true
	}
	return false, false
}

func mismatch(c *Condition, ref any, want string) error {
	return evaluationError(c, ErrUnsupported, "reference is %T, want %s", ref, want)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toFloats(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return s, true
	case []int:
		out := make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, 0, len(s))
		for _, e := range s {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}

func containsString(ref any, item string) (found, ok bool) {
	switch r := ref.(type) {
	case string:
		return strings.Contains(r, item), true
	case []string:
		return slices.Contains(r, item), true
	case []any:
		for _, e := range r {
			if s, isStr := e.(string); isStr && s == item {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}
