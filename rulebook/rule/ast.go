package rule

// Node is an element of a rule tree: *Operator, *Condition or *Raw.
type Node interface {
	isNode()
}

// LogicalOp combines child expressions.
type LogicalOp string

const (
	OpAnd LogicalOp = "$AND"
	OpOr  LogicalOp = "$OR"
	OpNot LogicalOp = "$NOT"
)

// CmpOp is the comparison symbol of a condition.
type CmpOp string

const (
	OpLt  CmpOp = "<"
	OpLte CmpOp = "<="
	OpEq  CmpOp = "=="
	OpGt  CmpOp = ">"
	OpGte CmpOp = ">="
	// OpHas is "<>": the literal is contained in the reference.
	OpHas CmpOp = "<>"
	// OpIn is ":=": the reference is contained in the literal.
	OpIn CmpOp = ":="
)

// Ordering reports whether op is one of < <= == > >=.
func (op CmpOp) Ordering() bool {
	switch op {
	case OpLt, OpLte, OpEq, OpGt, OpGte:
		return true
	}
	return false
}

// Operator is an $AND, $OR or $NOT node. $NOT always has one argument.
type Operator struct {
	Kind LogicalOp
	Args []Node
}

// Condition compares DB.Field against a literal.
type Condition struct {
	DB    string
	Field string
	Op    CmpOp
	Value Value
}

// Path returns "db.field".
func (c *Condition) Path() string {
	return c.DB + "." + c.Field
}

// Raw is a condition leaf whose text has not been parsed yet.
type Raw struct {
	Text string
}

func (*Operator) isNode()  {}
func (*Condition) isNode() {}
func (*Raw) isNode()       {}

// Walk visits n depth-first in argument order. Returning false from fn
// skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if op, ok := n.(*Operator); ok {
		for _, arg := range op.Args {
			Walk(arg, fn)
		}
	}
}

// Conditions returns the condition leaves of n in textual order.
func Conditions(n Node) []*Condition {
	var out []*Condition
	Walk(n, func(n Node) bool {
		if c, ok := n.(*Condition); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}
