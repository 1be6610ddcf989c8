package pdfops

import (
	"strings"
)

// kerning, in thousandths of text space, from which a TJ adjustment is
// read as a word break.
const wordSpacing = 250

type textWriter struct {
	strings.Builder
	line bool
}

func (w *textWriter) newline() {
	if w.line {
		w.WriteByte(nl)
		w.line = false
	}
}

func (w *textWriter) show(str string) {
	if str == "" {
		return
	}
	w.WriteString(str)
	w.line = true
}

// ExtractText returns the strings shown by the text operators of a list of
// commands. Strings are decoded without looking at the font, so it is only
// accurate for simple fonts with a standard encoding.
func ExtractText(cmds []Command) string {
	var (
		w    textWriter
		last float64
	)
	for _, c := range cmds {
		args := c.Operands()
		switch c.Operator() {
		case "Tj":
			if len(args) > 0 {
				w.show(textOf(args[0]))
			}
		case "TJ":
			if len(args) == 0 {
				break
			}
			arr, _ := args[0].(Array)
			for _, v := range arr {
				if n, ok := v.(*Number); ok {
					if f, _ := n.Float(); f <= -wordSpacing && w.line {
						w.WriteByte(space)
					}
					continue
				}
				w.show(textOf(v))
			}
		case "'":
			w.newline()
			if len(args) > 0 {
				w.show(textOf(args[len(args)-1]))
			}
		case "\"":
			w.newline()
			if len(args) > 2 {
				w.show(textOf(args[2]))
			}
		case "T*", "ET":
			w.newline()
		case "Td", "TD":
			if len(args) > 1 {
				if ty := floatOf(args[1]); ty != 0 {
					w.newline()
				}
			}
		case "Tm":
			if len(args) > 5 {
				if ty := floatOf(args[5]); ty != last {
					w.newline()
					last = ty
				}
			}
		}
	}
	return strings.TrimRight(w.String(), "\n")
}

func textOf(v Value) string {
	s, ok := v.(String)
	if !ok {
		return ""
	}
	return s.Text()
}

func floatOf(v Value) float64 {
	n, ok := v.(*Number)
	if !ok {
		return 0
	}
	f, _ := n.Float()
	return f
}
