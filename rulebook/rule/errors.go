package rule

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	ErrSyntax     ErrorKind = "syntax"
	ErrArity      ErrorKind = "arity"
	ErrValidation ErrorKind = "validation"
	ErrEvaluation ErrorKind = "evaluation"
)

// Sentinel causes. Match them with errors.Is.
var (
	ErrUnterminatedCondition = errors.New("unterminated condition")
	ErrUnexpectedCharacter   = errors.New("unexpected character")
	ErrUnknownField          = errors.New("unknown field")
	ErrMissingContext        = errors.New("missing context entry")
	ErrUnsupported           = errors.New("unsupported comparison")
)

// Error is returned by every stage of the rule pipeline.
// Pos is a rune offset into the text being scanned, or -1.
type Error struct {
	Kind    ErrorKind
	Message string
	Pos     int
	Field   string
	Op      CmpOp
	Value   Value
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Pos >= 0 {
		fmt.Fprintf(&sb, " at position %d", e.Pos)
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, " (field=%s", e.Field)
		if e.Op != "" {
			fmt.Fprintf(&sb, " op=%s", e.Op)
		}
		if e.Value != nil {
			fmt.Fprintf(&sb, " value=%s", FormatValue(e.Value))
		}
		sb.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func syntaxError(pos int, format string, args ...any) *Error {
	return &Error{Kind: ErrSyntax, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func syntaxErrorCause(pos int, cause error, format string, args ...any) *Error {
	return &Error{Kind: ErrSyntax, Message: fmt.Sprintf(format, args...), Pos: pos, Cause: cause}
}

func arityError(op LogicalOp, got int) *Error {
	return &Error{
		Kind:    ErrArity,
		Message: fmt.Sprintf("%s takes exactly one argument, got %d", op, got),
		Pos:     -1,
	}
}

func unknownFieldError(field string) *Error {
	return &Error{Kind: ErrValidation, Message: "field not in schema", Pos: -1, Field: field, Cause: ErrUnknownField}
}

func validationError(c *Condition, typ FieldType) *Error {
	return &Error{
		Kind:    ErrValidation,
		Message: fmt.Sprintf("operator and value not allowed for %s field", typ),
		Pos:     -1,
		Field:   c.Path(),
		Op:      c.Op,
		Value:   c.Value,
	}
}

func evaluationError(c *Condition, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrEvaluation,
		Message: fmt.Sprintf(format, args...),
		Pos:     -1,
		Field:   c.Path(),
		Op:      c.Op,
		Value:   c.Value,
		Cause:   cause,
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
