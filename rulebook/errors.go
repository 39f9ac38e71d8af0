package rulebook

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrIO           ErrorKind = "io"
	ErrSQL          ErrorKind = "sql"
	ErrSchema       ErrorKind = "schema"
	ErrRuleParse    ErrorKind = "rule_parse"
	ErrRuleRejected ErrorKind = "rule_rejected"
	ErrNotFound     ErrorKind = "not_found"
	ErrCursor       ErrorKind = "cursor"
	ErrRecord       ErrorKind = "record"
)

type Error struct {
	Kind    ErrorKind
	Message string
	RuleID  string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.RuleID != "" {
		base = fmt.Sprintf("%s (rule=%s)", base, e.RuleID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func SchemaError(msg string) *Error {
	return &Error{Kind: ErrSchema, Message: msg}
}

func CursorError(msg string) *Error {
	return &Error{Kind: ErrCursor, Message: msg}
}

func NotFoundError(id string) *Error {
	return &Error{Kind: ErrNotFound, Message: "rule not found", RuleID: id}
}

func RecordError(msg string) *Error {
	return &Error{Kind: ErrRecord, Message: msg}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
