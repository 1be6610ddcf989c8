package pdfops

import (
	"fmt"
	"io"
)

// Kind identifies the lexical class of a token.
type Kind int8

const (
	TokEOF Kind = iota
	TokComment
	TokKeyword
	TokName
	TokString
	TokNumber
	TokBegArr
	TokEndArr
	TokBegDict
	TokEndDict
)

func (k Kind) String() string {
	switch k {
	case TokEOF:
		return "eof"
	case TokComment:
		return "comment"
	case TokKeyword:
		return "keyword"
	case TokName:
		return "name"
	case TokString:
		return "string"
	case TokNumber:
		return "number"
	case TokBegArr:
		return "begin(array)"
	case TokEndArr:
		return "end(array)"
	case TokBegDict:
		return "begin(dict)"
	case TokEndDict:
		return "end(dict)"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Tokenizer splits a byte buffer into PDF tokens. Only the current token is
// kept: every call to Next replaces it.
type Tokenizer struct {
	r     *Reader
	kind  Kind
	value []byte
	hex   bool
	start int64
	end   int64
}

// Mark is a snapshot of the tokenizer state, used to back out of a
// lookahead.
type Mark struct {
	ptr   int64
	kind  Kind
	value []byte
	hex   bool
	start int64
	end   int64
}

func NewTokenizer(r *Reader) *Tokenizer {
	return &Tokenizer{r: r, kind: TokEOF}
}

func (t *Tokenizer) Kind() Kind {
	return t.kind
}

// Bytes returns the content of the current token: decoded bytes for strings
// and names, the text after % for comments, source bytes otherwise.
func (t *Tokenizer) Bytes() []byte {
	return t.value
}

// Raw returns the source bytes of the current token.
func (t *Tokenizer) Raw() []byte {
	return t.r.slice(t.start, t.end)
}

func (t *Tokenizer) IsHex() bool {
	return t.hex
}

// Offset returns the position of the first byte of the current token.
func (t *Tokenizer) Offset() int64 {
	return t.start
}

func (t *Tokenizer) Mark() Mark {
	return Mark{
		ptr:   t.r.Tell(),
		kind:  t.kind,
		value: t.value,
		hex:   t.hex,
		start: t.start,
		end:   t.end,
	}
}

func (t *Tokenizer) Reset(m Mark) {
	t.r.Seek(m.ptr, io.SeekStart)
	t.kind = m.kind
	t.value = m.value
	t.hex = m.hex
	t.start = m.start
	t.end = m.end
}

// setKeyword makes the bytes between start and end the current keyword and
// moves the reader after them.
func (t *Tokenizer) setKeyword(start, end int64) {
	t.r.Seek(end, io.SeekStart)
	t.kind = TokKeyword
	t.hex = false
	t.start = start
	t.end = end
	t.value = t.Raw()
}

// Fail builds a ParseError located at the start of the current token.
func (t *Tokenizer) Fail(kind error, msg string) error {
	return t.failAt(t.start, kind, msg)
}

func (t *Tokenizer) failAt(offset int64, kind error, msg string) error {
	line, col := t.r.Position(offset)
	return &ParseError{
		Offset: offset,
		Line:   line,
		Column: col,
		Err:    kind,
		Msg:    msg,
	}
}

// Next advances to the following token. It returns io.EOF once the input is
// exhausted and a *ParseError on malformed input.
func (t *Tokenizer) Next() error {
	t.r.Skip()
	t.start = t.r.Tell()
	t.end = t.start
	t.value, t.hex = nil, false

	b, err := t.r.ReadByte()
	if err != nil {
		t.kind = TokEOF
		return io.EOF
	}
	switch {
	case b == percent:
		t.readComment()
	case b == lsquare:
		t.kind = TokBegArr
	case b == rsquare:
		t.kind = TokEndArr
	case b == langle:
		if c, ok := t.r.peek(0); ok && c == langle {
			t.r.ReadByte()
			t.kind = TokBegDict
			break
		}
		err = t.readHex()
	case b == rangle:
		t.kind = TokKeyword
		if c, ok := t.r.peek(0); ok && c == rangle {
			t.r.ReadByte()
			t.kind = TokEndDict
		}
	case b == lparen:
		err = t.readString()
	case b == slash:
		t.readName()
	case b == rparen || b == lcurly || b == rcurly:
		t.kind = TokKeyword
	case isNumber(b):
		t.readNumber(b)
	default:
		t.readKeyword()
	}
	t.end = t.r.Tell()
	switch t.kind {
	case TokKeyword, TokNumber, TokBegArr, TokEndArr, TokBegDict, TokEndDict:
		t.value = t.Raw()
	}
	return err
}

func (t *Tokenizer) readComment() {
	t.kind = TokComment
	from := t.r.Tell()
	for {
		c, ok := t.r.peek(0)
		if !ok || c == nl || c == cr {
			break
		}
		t.r.ReadByte()
	}
	t.value = t.r.slice(from, t.r.Tell())
}

func (t *Tokenizer) readKeyword() {
	t.kind = TokKeyword
	for {
		c, ok := t.r.peek(0)
		if !ok || isBlank(c) || isDelimiter(c) {
			break
		}
		t.r.ReadByte()
	}
}

func (t *Tokenizer) readNumber(first byte) {
	t.kind = TokNumber
	signs := isSign(first)
	for {
		c, ok := t.r.peek(0)
		if !ok {
			break
		}
		if signs && isSign(c) {
			t.r.ReadByte()
			continue
		}
		if isDigit(c) || c == dot {
			signs = false
			t.r.ReadByte()
			continue
		}
		break
	}
}

func (t *Tokenizer) readName() {
	t.kind = TokName
	var name []byte
	for {
		c, ok := t.r.peek(0)
		if !ok || isBlank(c) || isDelimiter(c) {
			break
		}
		t.r.ReadByte()
		if c == pound {
			c1, ok1 := t.r.peek(0)
			c2, ok2 := t.r.peek(1)
			h1, x1 := fromHexChar(c1)
			h2, x2 := fromHexChar(c2)
			if ok1 && ok2 && x1 && x2 {
				t.r.Discard(2)
				c = (h1 << 4) | h2
			}
		}
		name = append(name, c)
	}
	t.value = name
}

func (t *Tokenizer) readHex() error {
	t.kind = TokString
	t.hex = true
	var (
		str []byte
		hi  byte
		odd bool
	)
	for {
		b, err := t.r.ReadByte()
		if err != nil {
			return t.failAt(t.r.Tell(), ErrUnexpectedEOF, "unterminated hex string")
		}
		if b == rangle {
			break
		}
		if isBlank(b) {
			continue
		}
		n, ok := fromHexChar(b)
		if !ok {
			return t.failAt(t.r.Tell()-1, ErrSyntax, fmt.Sprintf("invalid hex character %q", b))
		}
		if odd {
			str = append(str, (hi<<4)|n)
		} else {
			hi = n
		}
		odd = !odd
	}
	if odd {
		str = append(str, hi<<4)
	}
	t.value = str
	return nil
}

func (t *Tokenizer) readString() error {
	t.kind = TokString
	var (
		str    []byte
		parens = 1
	)
	for {
		b, err := t.r.ReadByte()
		if err != nil {
			return t.failAt(t.r.Tell(), ErrUnexpectedEOF, "unterminated literal string")
		}
		switch b {
		case lparen:
			parens++
		case rparen:
			parens--
			if parens == 0 {
				t.value = str
				return nil
			}
		case cr:
			if c, ok := t.r.peek(0); ok && c == nl {
				t.r.ReadByte()
			}
			b = nl
		case backslash:
			b, err = t.r.ReadByte()
			if err != nil {
				return t.failAt(t.r.Tell(), ErrUnexpectedEOF, "unterminated literal string")
			}
			switch b {
			case 'n':
				b = nl
			case 'r':
				b = cr
			case 't':
				b = tab
			case 'b':
				b = backspace
			case 'f':
				b = formfeed
			case cr:
				if c, ok := t.r.peek(0); ok && c == nl {
					t.r.ReadByte()
				}
				continue
			case nl:
				continue
			default:
				if isOctal(b) {
					b = t.readOctal(b)
				}
			}
		}
		str = append(str, b)
	}
}

func (t *Tokenizer) readOctal(first byte) byte {
	v := int(first - '0')
	for i := 0; i < 2; i++ {
		c, ok := t.r.peek(0)
		if !ok || !isOctal(c) {
			break
		}
		t.r.ReadByte()
		v = (v << 3) | int(c-'0')
	}
	return byte(v)
}

const (
	nl        = '\n'
	cr        = '\r'
	percent   = '%'
	space     = ' '
	tab       = '\t'
	formfeed  = '\f'
	backspace = '\b'
	null      = 0x00
	langle    = '<'
	rangle    = '>'
	lsquare   = '['
	rsquare   = ']'
	lparen    = '('
	rparen    = ')'
	lcurly    = '{'
	rcurly    = '}'
	pound     = '#'
	slash     = '/'
	minus     = '-'
	plus      = '+'
	dot       = '.'
	backslash = '\\'
)

func isNumber(b byte) bool {
	return isDigit(b) || isSign(b) || b == dot
}

func isSign(b byte) bool {
	return b == minus || b == plus
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctal(b byte) bool {
	return b >= '0' && b <= '7'
}

func isBlank(b byte) bool {
	switch b {
	case space, tab, nl, cr, formfeed, null:
		return true
	default:
		return false
	}
}

func isDelimiter(b byte) bool {
	switch b {
	case lparen, rparen, langle, rangle, lsquare, rsquare, lcurly, rcurly, slash, percent:
		return true
	default:
		return false
	}
}

func fromHexChar(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return (b - 'a') + 10, true
	case b >= 'A' && b <= 'F':
		return (b - 'A') + 10, true
	}
	return 0, false
}
