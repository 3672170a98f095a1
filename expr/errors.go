package expr

import "fmt"

const (
	ErrInvalidCharacter = iota
	ErrInvalidNumber
	ErrInvalidColumnReference
	ErrUnexpectedToken
	ErrMismatchedParentheses
)

const (
	ErrColumnNotFound = iota
	ErrRowIndexOutOfBounds
	ErrColumnsDifferentLengths
	ErrNonFiniteNumber
)

// ParseError is a lexing or parsing failure. Context carries a rendering of
// the source with a caret pointing at the offending position.
type ParseError struct {
	Kind    int
	Msg     string
	Context string
}

func (self *ParseError) Error() string {
	if self.Context == "" {
		return self.Msg
	}
	return fmt.Sprintf("%s\n%s", self.Msg, self.Context)
}

// EvalError is a numeric evaluation failure, ie a bad column reference or a
// non-finite intermediate result.
type EvalError struct {
	Kind int
	Msg  string
}

func (self *EvalError) Error() string {
	return self.Msg
}

func evalErr(kind int, format string, args ...interface{}) *EvalError {
	return &EvalError{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	}
}

var errNonFinite = &EvalError{
	Kind: ErrNonFiniteNumber,
	Msg:  "non-finite result (inf or NaN)",
}
