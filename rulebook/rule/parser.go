package rule

import "strings"

// Parse parses rule text into a tree of operators and conditions.
func Parse(input string) (Node, error) {
	tree, err := ParseLogical(input)
	if err != nil {
		return nil, err
	}
	return Resolve(tree)
}

// Resolve returns a copy of tree in which every *Raw leaf is replaced by its
// parsed *Condition. The input tree is left untouched.
func Resolve(tree Node) (Node, error) {
	switch n := tree.(type) {
	case *Raw:
		c, err := ParseCondition(n.Text)
		if err != nil {
			return nil, err
		}
		return c, nil
	case *Condition:
		return n, nil
	case *Operator:
		args := make([]Node, 0, len(n.Args))
		for _, arg := range n.Args {
			resolved, err := Resolve(arg)
			if err != nil {
				return nil, err
			}
			args = append(args, resolved)
		}
		return &Operator{Kind: n.Kind, Args: args}, nil
	default:
		return nil, syntaxError(-1, "unknown node %T", tree)
	}
}

// ParseCondition parses "db.field OP value".
func ParseCondition(input string) (*Condition, error) {
	tokens, err := TokenizeCondition(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	return p.parseCondition()
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	tok := p.current()
	if tok.Kind != kind {
		return tok, syntaxError(tok.Pos, "expected %s, got %s", kind, tok.Kind)
	}
	p.advance()
	return tok, nil
}

func (p *parser) parseCondition() (*Condition, error) {
	field, err := p.expect(TokField)
	if err != nil {
		return nil, err
	}
	op, err := p.expect(TokOp)
	if err != nil {
		return nil, err
	}

	tok := p.current()
	if tok.Lit == nil {
		return nil, syntaxError(tok.Pos, "expected value, got %s", tok.Kind)
	}
	p.advance()

	if trailing := p.current(); trailing.Kind != TokEOF {
		return nil, syntaxError(trailing.Pos, "unexpected %s after value", trailing.Kind)
	}

	db, name, _ := strings.Cut(field.Text, ".")
	return &Condition{DB: db, Field: name, Op: CmpOp(op.Text), Value: tok.Lit}, nil
}
