package pdfops

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedEOF   = errors.New("unexpected end of file")
	ErrInvalidKey      = errors.New("dictionary key is not a name")
	ErrUnexpectedToken = errors.New("unexpected token")
	ErrMalformedNumber = errors.New("malformed numeric literal")
	ErrSyntax          = errors.New("syntax error")
	ErrMissing         = errors.New("not found")
	ErrUnsupported     = errors.New("unsupported")
)

// ParseError reports a fatal error met while tokenizing or parsing a
// byte buffer. Err is one of the sentinel errors of this package.
type ParseError struct {
	Offset int64
	Line   int
	Column int
	Err    error
	Msg    string
}

func (e *ParseError) Error() string {
	msg := e.Err.Error()
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	return fmt.Sprintf("%d:%d (offset %d): %s", e.Line, e.Column, e.Offset, msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
