package pdfops

import (
	"errors"
	"fmt"
	"io"
)

const DefaultMaxDepth = 256

type Option func(*Parser)

// WithReferences makes the parser recognize indirect references (num gen
// R). Object bodies of a document need it, content streams do not.
func WithReferences() Option {
	return func(p *Parser) {
		p.refs = true
	}
}

// WithMaxDepth limits how deep arrays and dictionaries can be nested.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.limit = n
		}
	}
}

// Parser builds values out of the tokens of a Tokenizer.
type Parser struct {
	tok   *Tokenizer
	refs  bool
	depth int
	limit int
}

func NewParser(r *Reader, opts ...Option) *Parser {
	p := Parser{
		tok:   NewTokenizer(r),
		limit: DefaultMaxDepth,
	}
	for _, o := range opts {
		o(&p)
	}
	return &p
}

func (p *Parser) Tokenizer() *Tokenizer {
	return p.tok
}

// ReadObject reads one complete value. It returns io.EOF when no token is
// left. Any token that is not the start of an operand (operators, but also
// stray closing delimiters) is returned as a Keyword; the kind of the last
// consumed token tells them apart. The keywords true, false and null are
// read as Bool and Null values rather than Keyword, so they never close a
// command.
func (p *Parser) ReadObject() (Value, error) {
	if err := p.nextValid(); err != nil {
		return nil, err
	}
	switch p.tok.Kind() {
	case TokBegDict:
		return p.readDict()
	case TokBegArr:
		return p.readArray()
	case TokString:
		return String{Bytes: p.tok.Bytes(), Hex: p.tok.IsHex()}, nil
	case TokName:
		return Name(p.tok.Bytes()), nil
	case TokNumber:
		n := NewNumber(p.tok.Bytes())
		if p.refs {
			if ref, ok := p.readReference(n); ok {
				return ref, nil
			}
		}
		return n, nil
	default:
		switch kw := Keyword(p.tok.Bytes()); kw {
		case "true", "false":
			return Bool(kw == "true"), nil
		case "null":
			return Null{}, nil
		default:
			return kw, nil
		}
	}
}

func (p *Parser) nextValid() error {
	for {
		if err := p.tok.Next(); err != nil {
			return err
		}
		if p.tok.Kind() != TokComment {
			return nil
		}
	}
}

func (p *Parser) readDict() (Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	dict := make(Dict)
	for {
		if err := p.nextValid(); err != nil {
			return nil, p.unexpectedEOF(err, "unterminated dictionary")
		}
		switch p.tok.Kind() {
		case TokEndDict:
			return dict, nil
		case TokName:
		default:
			msg := fmt.Sprintf("%s %q", p.tok.Kind(), p.tok.Raw())
			return nil, p.tok.Fail(ErrInvalidKey, msg)
		}
		key := Name(p.tok.Bytes())
		val, err := p.ReadObject()
		if err != nil {
			return nil, p.unexpectedEOF(err, "unterminated dictionary")
		}
		dict[key] = val
	}
}

// readArray stops on the first element that is not an array and was closed
// by a ]. A >> closing anything but a dictionary is an error.
func (p *Parser) readArray() (Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	arr := make(Array, 0)
	for {
		val, err := p.ReadObject()
		if err != nil {
			return nil, p.unexpectedEOF(err, "unterminated array")
		}
		_, isArr := val.(Array)
		_, isDict := val.(Dict)
		switch p.tok.Kind() {
		case TokEndArr:
			if !isArr {
				return arr, nil
			}
		case TokEndDict:
			if !isDict {
				return nil, p.tok.Fail(ErrUnexpectedToken, ">>")
			}
		}
		arr = append(arr, val)
	}
}

func (p *Parser) readReference(num *Number) (Value, bool) {
	if !num.IsInt() {
		return nil, false
	}
	mark := p.tok.Mark()
	if err := p.tok.Next(); err != nil || p.tok.Kind() != TokNumber {
		p.tok.Reset(mark)
		return nil, false
	}
	gen := NewNumber(p.tok.Bytes())
	if !gen.IsInt() {
		p.tok.Reset(mark)
		return nil, false
	}
	if err := p.tok.Next(); err != nil || p.tok.Kind() != TokKeyword || string(p.tok.Bytes()) != "R" {
		p.tok.Reset(mark)
		return nil, false
	}
	var (
		n, _ = num.Int()
		g, _ = gen.Int()
	)
	return Reference{Num: int(n), Gen: int(g)}, true
}

func (p *Parser) unexpectedEOF(err error, msg string) error {
	if errors.Is(err, io.EOF) {
		return p.tok.Fail(ErrUnexpectedEOF, msg)
	}
	return err
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > p.limit {
		p.depth--
		return p.tok.Fail(ErrSyntax, fmt.Sprintf("nesting deeper than %d", p.limit))
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}
