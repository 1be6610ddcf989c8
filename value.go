package pdfops

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Value is one parsed PDF object: Null, Bool, *Number, String, Name, Array,
// Dict, Keyword, Reference or *InlineImage. Values are never modified once
// built. String renders the value in PDF syntax.
type Value interface {
	String() string
	isValue()
}

type Null struct{}

func (Null) String() string { return "null" }
func (Null) isValue()       {}

type Bool bool

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }
func (Bool) isValue()         {}

// Keyword is a bare token that is not an operand by itself: operators,
// and markers such as BI, ID or EI.
type Keyword string

func (k Keyword) String() string { return string(k) }
func (Keyword) isValue()         {}

// Name is a decoded PDF name, without its leading slash.
type Name string

func (n Name) String() string {
	var str strings.Builder
	str.WriteByte(slash)
	for i := 0; i < len(n); i++ {
		b := n[i]
		if b < 0x21 || b > 0x7e || b == pound || isDelimiter(b) {
			fmt.Fprintf(&str, "#%02X", b)
			continue
		}
		str.WriteByte(b)
	}
	return str.String()
}

func (Name) isValue() {}

// String is the decoded content of a literal or hexadecimal string.
type String struct {
	Bytes []byte
	Hex   bool
}

func (s String) String() string {
	if s.Hex {
		return fmt.Sprintf("<%X>", s.Bytes)
	}
	var str strings.Builder
	str.WriteByte(lparen)
	for _, b := range s.Bytes {
		switch b {
		case lparen, rparen, backslash:
			str.WriteByte(backslash)
			str.WriteByte(b)
		case nl:
			str.WriteString(`\n`)
		case cr:
			str.WriteString(`\r`)
		case tab:
			str.WriteString(`\t`)
		case backspace:
			str.WriteString(`\b`)
		case formfeed:
			str.WriteString(`\f`)
		default:
			if b < 0x20 || b > 0x7e {
				fmt.Fprintf(&str, `\%03o`, b)
				continue
			}
			str.WriteByte(b)
		}
	}
	str.WriteByte(rparen)
	return str.String()
}

// Text decodes the string as a text string: UTF-16 or UTF-8 when it starts
// with a byte order mark, PDFDocEncoding (approximated with Windows-1252)
// otherwise.
func (s String) Text() string {
	// decoders are stateful, one per call
	var (
		str []byte
		err error
	)
	switch {
	case bytes.HasPrefix(s.Bytes, []byte("\xfe\xff")):
		str, err = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(s.Bytes)
	case bytes.HasPrefix(s.Bytes, []byte("\xff\xfe")):
		str, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(s.Bytes)
	case bytes.HasPrefix(s.Bytes, []byte("\xef\xbb\xbf")):
		str, err = unicode.UTF8BOM.NewDecoder().Bytes(s.Bytes)
	default:
		str, err = charmap.Windows1252.NewDecoder().Bytes(s.Bytes)
	}
	if err != nil {
		return string(s.Bytes)
	}
	return string(str)
}

func (String) isValue() {}

type Array []Value

func (a Array) String() string {
	list := make([]string, len(a))
	for i := range a {
		list[i] = a[i].String()
	}
	return "[" + strings.Join(list, " ") + "]"
}

func (Array) isValue() {}

// Reference is an indirect reference (num gen R) to an object of a
// document. Content streams never produce one.
type Reference struct {
	Num int
	Gen int
}

func (r Reference) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }
func (Reference) isValue()         {}

func (r Reference) isZero() bool {
	return r.Num == 0 && r.Gen == 0
}

func (d Dict) String() string {
	keys := d.Keys()
	if len(keys) == 0 {
		return "<< >>"
	}
	var str strings.Builder
	str.WriteString("<<")
	for _, k := range keys {
		fmt.Fprintf(&str, " %s %s", k, d[k])
	}
	str.WriteString(" >>")
	return str.String()
}

func (Dict) isValue() {}

// Keys returns the keys of the dictionary in lexical order.
func (d Dict) Keys() []Name {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return keys
}
