package rule

import (
	"strconv"
	"strings"
	"unicode"
)

// Iteration ceilings for bracketed literals.
const (
	maxTupleIter = 1000
	maxListIter  = 10000
)

// Token represents a lexical token of a condition
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
	Lit  Value // set for literal kinds
}

// TokenKind is the type of token
type TokenKind int

const (
	TokField TokenKind = iota
	TokOp
	TokString
	TokNumber
	TokRange
	TokStringList
	TokNumberList
	TokDateTime
	TokTimeDelta
	TokBool
	TokStar
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokField:
		return "Field"
	case TokOp:
		return "Op"
	case TokString:
		return "String"
	case TokNumber:
		return "Number"
	case TokRange:
		return "Range"
	case TokStringList:
		return "StringList"
	case TokNumberList:
		return "NumberList"
	case TokDateTime:
		return "DateTime"
	case TokTimeDelta:
		return "TimeDelta"
	case TokBool:
		return "Bool"
	case TokStar:
		return "Star"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// Lexer tokenizes one condition string
type Lexer struct {
	input []rune
	pos   int
}

// NewLexer creates a new lexer for the input string
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// TokenizeCondition tokenizes the entire condition
func TokenizeCondition(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			break
		}
	}

	return tokens, nil
}

// Next returns the next token
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: l.pos}, nil
	}

	ch := l.input[l.pos]

	// Bracketed literals come first: their openers overlap generic scanning.
	switch ch {
	case '{':
		return l.scanTimeDelta()
	case '(':
		return l.scanDateTime()
	case '/':
		return l.scanRange()
	case '[':
		return l.scanList()
	}

	if tok, ok := l.scanBool(); ok {
		return tok, nil
	}

	if isIdentStart(ch) {
		return l.scanField()
	}

	start := l.pos
	for _, op := range []CmpOp{OpLte, OpGte, OpEq, OpHas, OpLt, OpGt, OpIn} {
		if hasPrefixAt(l.input, l.pos, string(op)) {
			l.pos += len(op)
			return Token{Kind: TokOp, Text: string(op), Pos: start}, nil
		}
	}

	if ch == '*' {
		l.pos++
		return Token{Kind: TokStar, Text: "*", Pos: start, Lit: WildcardValue{}}, nil
	}

	if ch == '"' {
		s, err := l.scanString()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokString, Text: s, Pos: start, Lit: StringValue{Text: s}}, nil
	}

	if l.atNumber() {
		n, err := l.scanNumber()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokNumber, Text: string(l.input[start:l.pos]), Pos: start, Lit: NumberValue{Num: n}}, nil
	}

	return Token{}, syntaxErrorCause(l.pos, ErrUnexpectedCharacter, "unexpected character %q", ch)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

func (l *Lexer) scanTimeDelta() (Token, error) {
	start := l.pos
	var parts []int
	err := l.scanElements('}', "timedelta", maxTupleIter, func() error {
		n, err := l.scanInt()
		if err != nil {
			return err
		}
		parts = append(parts, n)
		return nil
	})
	if err != nil {
		return Token{}, err
	}
	if len(parts) != 6 {
		return Token{}, syntaxError(start, "timedelta needs 6 comma-separated integers, got %d", len(parts))
	}

	var td TimeDeltaValue
	copy(td.Parts[:], parts)
	return Token{Kind: TokTimeDelta, Text: string(l.input[start:l.pos]), Pos: start, Lit: td}, nil
}

func (l *Lexer) scanDateTime() (Token, error) {
	start := l.pos
	var parts []DatePart
	err := l.scanElements(')', "datetime", maxTupleIter, func() error {
		if l.peek(0) == '*' {
			l.pos++
			parts = append(parts, Wild())
			return nil
		}
		n, err := l.scanInt()
		if err != nil {
			return err
		}
		parts = append(parts, At(n))
		return nil
	})
	if err != nil {
		return Token{}, err
	}
	if len(parts) != 6 {
		return Token{}, syntaxError(start, "datetime needs 6 components, got %d", len(parts))
	}

	var dt DateTimeValue
	copy(dt.Parts[:], parts)
	return Token{Kind: TokDateTime, Text: string(l.input[start:l.pos]), Pos: start, Lit: dt}, nil
}

func (l *Lexer) scanRange() (Token, error) {
	start := l.pos
	var bounds []float64
	err := l.scanElements('/', "range", maxTupleIter, func() error {
		if !l.atNumber() {
			return syntaxError(l.pos, "expected number in range")
		}
		n, err := l.scanNumber()
		if err != nil {
			return err
		}
		bounds = append(bounds, n)
		return nil
	})
	if err != nil {
		return Token{}, err
	}
	if len(bounds) != 2 {
		return Token{}, syntaxError(start, "range needs 2 bounds, got %d", len(bounds))
	}

	rv := RangeValue{Low: bounds[0], High: bounds[1]}
	return Token{Kind: TokRange, Text: string(l.input[start:l.pos]), Pos: start, Lit: rv}, nil
}

func (l *Lexer) scanList() (Token, error) {
	start := l.pos

	// The first element decides the kind of the whole list.
	save := l.pos
	l.pos++
	l.skipWhitespace()
	first := l.peek(0)
	l.pos = save

	if first == ']' {
		return Token{}, syntaxError(start, "empty list")
	}

	if first == '"' {
		var items []string
		err := l.scanElements(']', "list", maxListIter, func() error {
			if l.peek(0) != '"' {
				return syntaxError(l.pos, "list mixes strings and numbers")
			}
			s, err := l.scanString()
			if err != nil {
				return err
			}
			items = append(items, s)
			return nil
		})
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokStringList, Text: string(l.input[start:l.pos]), Pos: start, Lit: StringListValue{Items: items}}, nil
	}

	var items []float64
	err := l.scanElements(']', "list", maxListIter, func() error {
		if l.peek(0) == '"' {
			return syntaxError(l.pos, "list mixes numbers and strings")
		}
		if !l.atNumber() {
			return syntaxError(l.pos, "expected number in list")
		}
		n, err := l.scanNumber()
		if err != nil {
			return err
		}
		items = append(items, n)
		return nil
	})
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: TokNumberList, Text: string(l.input[start:l.pos]), Pos: start, Lit: NumberListValue{Items: items}}, nil
}

// scanElements consumes an opening delimiter, comma-separated elements and
// the closing delimiter. elem is called with the lexer on the element start.
func (l *Lexer) scanElements(closer rune, what string, maxIter int, elem func() error) error {
	start := l.pos
	l.pos++ // consume opener

	for count := 1; ; count++ {
		if count > maxIter {
			return syntaxError(start, "too many iterations while scanning %s", what)
		}
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return syntaxError(start, "unterminated %s", what)
		}
		if err := elem(); err != nil {
			return err
		}
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return syntaxError(start, "unterminated %s", what)
		}
		switch l.input[l.pos] {
		case ',':
			l.pos++
		case closer:
			l.pos++
			return nil
		default:
			return syntaxError(l.pos, "expected ',' or %q in %s, got %q", closer, what, l.input[l.pos])
		}
	}
}

func (l *Lexer) scanBool() (Token, bool) {
	for _, word := range []string{"TRUE", "FALSE"} {
		if !hasPrefixAt(l.input, l.pos, word) {
			continue
		}
		next := l.peek(len(word))
		if isIdentChar(next) || next == '.' {
			return Token{}, false
		}
		start := l.pos
		l.pos += len(word)
		return Token{Kind: TokBool, Text: word, Pos: start, Lit: BoolValue{B: word == "TRUE"}}, true
	}
	return Token{}, false
}

func (l *Lexer) scanField() (Token, error) {
	start := l.pos
	l.scanIdent()

	if l.peek(0) != '.' {
		return Token{}, syntaxError(l.pos, "expected '.' in field reference %q", string(l.input[start:l.pos]))
	}
	l.pos++
	if !isIdentStart(l.peek(0)) {
		return Token{}, syntaxError(l.pos, "invalid field name after '.'")
	}
	l.scanIdent()
	if l.peek(0) == '.' {
		return Token{}, syntaxError(l.pos, "field reference must contain exactly one '.'")
	}

	return Token{Kind: TokField, Text: string(l.input[start:l.pos]), Pos: start}, nil
}

func (l *Lexer) scanIdent() {
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) scanString() (string, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '"' {
			l.pos++ // consume closing quote
			return sb.String(), nil
		}
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
		}
		sb.WriteRune(l.input[l.pos])
		l.pos++
	}

	return "", syntaxError(start, "unterminated string literal")
}

func (l *Lexer) atNumber() bool {
	ch := l.peek(0)
	if ch == '-' || ch == '+' {
		ch = l.peek(1)
	}
	return isDigit(ch)
}

func (l *Lexer) scanNumber() (float64, error) {
	start := l.pos

	if l.input[l.pos] == '-' || l.input[l.pos] == '+' {
		l.pos++
	}
	l.scanDigits()

	if l.peek(0) == '.' {
		l.pos++ // consume .
		if !isDigit(l.peek(0)) {
			return 0, syntaxError(l.pos, "expected digit after decimal point")
		}
		l.scanDigits()
	}

	numStr := string(l.input[start:l.pos])
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, syntaxError(start, "invalid number %s", numStr)
	}
	return num, nil
}

func (l *Lexer) scanInt() (int, error) {
	start := l.pos
	if l.peek(0) == '-' || l.peek(0) == '+' {
		l.pos++
	}
	if !isDigit(l.peek(0)) {
		return 0, syntaxError(start, "expected integer")
	}
	l.scanDigits()

	numStr := string(l.input[start:l.pos])
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, syntaxError(start, "invalid integer %s", numStr)
	}
	return n, nil
}

func (l *Lexer) scanDigits() {
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || isDigit(ch) || ch == '_'
}
