package rule

import (
	"strings"
	"unicode"
)

// LogicalKind is the type of a logical-level token
type LogicalKind int

const (
	LogOperator LogicalKind = iota
	LogLParen
	LogRParen
	LogComma
	LogCondition
	LogEOF
)

func (k LogicalKind) String() string {
	switch k {
	case LogOperator:
		return "Operator"
	case LogLParen:
		return "LParen"
	case LogRParen:
		return "RParen"
	case LogComma:
		return "Comma"
	case LogCondition:
		return "Condition"
	case LogEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// LogicalToken is a token of the outer rule grammar
type LogicalToken struct {
	Kind  LogicalKind
	Value string
	Pos   int
}

var logicalOperators = []LogicalOp{OpAnd, OpOr, OpNot}

// TokenizeLogical splits rule text into operators, structural characters and
// opaque condition spans. The result always ends with a LogEOF token.
func TokenizeLogical(input string) ([]LogicalToken, error) {
	in := []rune(input)
	var tokens []LogicalToken
	pos := 0

scan:
	for pos < len(in) {
		ch := in[pos]
		if unicode.IsSpace(ch) {
			pos++
			continue
		}

		for _, op := range logicalOperators {
			if hasPrefixAt(in, pos, string(op)) {
				tokens = append(tokens, LogicalToken{Kind: LogOperator, Value: string(op), Pos: pos})
				pos += len(op)
				continue scan
			}
		}

		switch ch {
		case '(':
			tokens = append(tokens, LogicalToken{Kind: LogLParen, Value: "(", Pos: pos})
			pos++
		case ')':
			tokens = append(tokens, LogicalToken{Kind: LogRParen, Value: ")", Pos: pos})
			pos++
		case ',':
			tokens = append(tokens, LogicalToken{Kind: LogComma, Value: ",", Pos: pos})
			pos++
		case '?':
			end := pos + 1
			for end < len(in) && in[end] != '?' {
				end++
			}
			if end >= len(in) {
				return nil, syntaxErrorCause(pos, ErrUnterminatedCondition, "condition opened with '?' is never closed")
			}
			text := strings.TrimSpace(string(in[pos+1 : end]))
			tokens = append(tokens, LogicalToken{Kind: LogCondition, Value: text, Pos: pos})
			pos = end + 1
		default:
			return nil, syntaxErrorCause(pos, ErrUnexpectedCharacter, "unexpected character %q", ch)
		}
	}

	tokens = append(tokens, LogicalToken{Kind: LogEOF, Pos: len(in)})
	return tokens, nil
}

func hasPrefixAt(in []rune, pos int, prefix string) bool {
	for _, r := range prefix {
		if pos >= len(in) || in[pos] != r {
			return false
		}
		pos++
	}
	return true
}

// ParseLogical parses rule text into a tree whose leaves are *Raw nodes.
func ParseLogical(input string) (Node, error) {
	tokens, err := TokenizeLogical(input)
	if err != nil {
		return nil, err
	}

	p := &logicalParser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Kind != LogEOF {
		return nil, syntaxError(tok.Pos, "unexpected %s after end of expression", tok.Kind)
	}
	return node, nil
}

type logicalParser struct {
	tokens []LogicalToken
	pos    int
}

func (p *logicalParser) current() LogicalToken {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return LogicalToken{Kind: LogEOF}
}

func (p *logicalParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *logicalParser) expect(kind LogicalKind) (LogicalToken, error) {
	tok := p.current()
	if tok.Kind != kind {
		return tok, syntaxError(tok.Pos, "expected %s, got %s", kind, tok.Kind)
	}
	p.advance()
	return tok, nil
}

func (p *logicalParser) parseExpr() (Node, error) {
	tok := p.current()
	switch tok.Kind {
	case LogCondition:
		p.advance()
		return &Raw{Text: tok.Value}, nil
	case LogOperator:
		return p.parseOperator()
	default:
		return nil, syntaxError(tok.Pos, "expected operator or condition, got %s", tok.Kind)
	}
}

func (p *logicalParser) parseOperator() (Node, error) {
	opTok := p.current()
	p.advance()

	if _, err := p.expect(LogLParen); err != nil {
		return nil, err
	}

	var args []Node
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.current().Kind != LogComma {
			break
		}
		p.advance()
	}

	if _, err := p.expect(LogRParen); err != nil {
		return nil, err
	}

	kind := LogicalOp(opTok.Value)
	if kind == OpNot && len(args) != 1 {
		return nil, arityError(kind, len(args))
	}
	return &Operator{Kind: kind, Args: args}, nil
}
