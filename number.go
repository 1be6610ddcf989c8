package pdfops

import (
	"fmt"
	"math"
	"strconv"
	"sync"
)

// Number holds the source bytes of a numeric token. Conversion happens on
// first use and its result, error included, is cached.
type Number struct {
	raw []byte

	once  sync.Once
	isInt bool
	i     int64
	f     float64
	err   error
}

func NewNumber(raw []byte) *Number {
	b := make([]byte, len(raw))
	copy(b, raw)
	return &Number{raw: b}
}

// Int makes a Number from an integer, already converted.
func Int(i int64) *Number {
	n := NewNumber([]byte(strconv.FormatInt(i, 10)))
	n.once.Do(n.parse)
	return n
}

func (n *Number) String() string { return string(n.raw) }
func (*Number) isValue()         {}

func (n *Number) Raw() []byte {
	return n.raw
}

// Int returns the value as an integer, truncating reals.
func (n *Number) Int() (int64, error) {
	n.once.Do(n.parse)
	if n.err != nil {
		return 0, n.err
	}
	if n.isInt {
		return n.i, nil
	}
	if math.IsNaN(n.f) || n.f >= math.MaxInt64 || n.f < math.MinInt64 {
		return 0, fmt.Errorf("%s out of integer range: %w", n.raw, ErrMalformedNumber)
	}
	return int64(n.f), nil
}

func (n *Number) Float() (float64, error) {
	n.once.Do(n.parse)
	if n.err != nil {
		return 0, n.err
	}
	return n.f, nil
}

// IsInt reports whether the source bytes denote an integer. It is false for
// malformed numbers.
func (n *Number) IsInt() bool {
	n.once.Do(n.parse)
	return n.err == nil && n.isInt
}

func (n *Number) parse() {
	str := normalizeSigns(string(n.raw))
	if i, err := strconv.ParseInt(str, 10, 64); err == nil {
		n.isInt, n.i, n.f = true, i, float64(i)
		return
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || !isDecimal(str) {
		n.err = fmt.Errorf("%q: %w", n.raw, ErrMalformedNumber)
		return
	}
	n.f = f
}

// normalizeSigns folds a leading run of signs into a single sign, every
// minus flipping it.
func normalizeSigns(str string) string {
	var (
		neg bool
		i   int
	)
	for ; i < len(str) && isSign(str[i]); i++ {
		if str[i] == minus {
			neg = !neg
		}
	}
	if i <= 1 {
		return str
	}
	if neg {
		return "-" + str[i:]
	}
	return str[i:]
}

func isDecimal(str string) bool {
	if str != "" && isSign(str[0]) {
		str = str[1:]
	}
	var digits, dots int
	for i := 0; i < len(str); i++ {
		switch c := str[i]; {
		case isDigit(c):
			digits++
		case c == dot:
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
