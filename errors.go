package cstruct

import (
	"fmt"

	"github.com/pkg/errors"
)

// ResolveError is returned when a type name cannot be resolved: either it
// was never registered, or its typedef chain exceeds the indirection
// limit enforced by Context.Resolve.
type ResolveError struct {
	Name string
	Err  error
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cstruct: cannot resolve type %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("cstruct: cannot resolve type %q", e.Name)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func newResolveError(name string, err error) *ResolveError {
	return &ResolveError{Name: name, Err: err}
}

// ParserError is returned for a syntax or semantic error while parsing a
// type definition. Line is 1-based and counted against the source text
// as given, comments included.
type ParserError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ParserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cstruct: line %d: %s: %v", e.Line, e.Msg, e.Err)
	}
	return fmt.Sprintf("cstruct: line %d: %s", e.Line, e.Msg)
}

func (e *ParserError) Unwrap() error { return e.Err }

func newParserError(line int, format string, args ...interface{}) *ParserError {
	return &ParserError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

func wrapParserError(line int, err error, format string, args ...interface{}) *ParserError {
	return &ParserError{Line: line, Msg: fmt.Sprintf(format, args...), Err: errors.WithStack(err)}
}

// ExpressionTokenizerError is returned when an expression contains a
// character sequence the tokenizer does not recognize.
type ExpressionTokenizerError struct {
	Msg string
}

func (e *ExpressionTokenizerError) Error() string {
	return "cstruct: expression tokenizer: " + e.Msg
}

// ExpressionParserError is returned when a tokenized expression cannot be
// evaluated: mismatched parentheses, an unmatched token, or a malformed
// sizeof(...) operation.
type ExpressionParserError struct {
	Msg string
}

func (e *ExpressionParserError) Error() string {
	return "cstruct: expression parser: " + e.Msg
}

// ArraySizeError is returned when a value written to a fixed-size array
// does not fit it: more or fewer elements than declared, except that a
// char or wchar array accepts a shorter value and zero-pads it.
type ArraySizeError struct {
	Expected int
	Actual   int
}

func (e *ArraySizeError) Error() string {
	return fmt.Sprintf("cstruct: expected array of size %d, got %d elements instead", e.Expected, e.Actual)
}

// NullPointerDereferenceError is returned when Dereference is called on a
// PointerValue whose address is zero.
type NullPointerDereferenceError struct{}

func (e *NullPointerDereferenceError) Error() string {
	return "cstruct: dereference of null pointer"
}

// OverflowError is returned when a value does not fit the width of the
// integer type it is being written as.
type OverflowError struct {
	Value  int64
	Bits   int
	Signed bool
}

func (e *OverflowError) Error() string {
	kind := "unsigned"
	if e.Signed {
		kind = "signed"
	}
	return fmt.Sprintf("cstruct: value %d overflows %d-bit %s integer", e.Value, e.Bits, kind)
}

// TaggingError, which reports a malformed Go struct tag on a custom
// type, is declared in tags.go beside the tag parser that panics with it.
