package rule

// Filter is a parsed and validated rule. It is immutable and may be
// evaluated from many goroutines at once.
type Filter struct {
	tree Node
	text string
}

// Compile parses text and validates it against schema.
func Compile(text string, schema Schema) (*Filter, error) {
	tree, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if err := ValidateTree(tree, schema); err != nil {
		return nil, err
	}
	return &Filter{tree: tree, text: Format(tree)}, nil
}

// Tree returns the rule tree. Callers must not modify it.
func (f *Filter) Tree() Node { return f.tree }

// String returns the canonical rule text.
func (f *Filter) String() string { return f.text }

// Conditions returns the condition leaves in textual order.
func (f *Filter) Conditions() []*Condition { return Conditions(f.tree) }

// Evaluate evaluates the filter with ev, or the default evaluator if ev is nil.
func (f *Filter) Evaluate(ev *Evaluator, ctx Context) (bool, error) {
	if ev == nil {
		ev = defaultEvaluator
	}
	return ev.Evaluate(f.tree, ctx)
}
