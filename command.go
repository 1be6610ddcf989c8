package pdfops

import (
	"errors"
	"io"
	"strings"
)

// Command is a list of operands closed by the keyword of its operator. The
// last command of a stream may lack the operator when the stream ends on
// operands.
type Command []Value

// Operator returns the closing keyword of the command, or "" if it has none.
func (c Command) Operator() string {
	if len(c) == 0 {
		return ""
	}
	k, ok := c[len(c)-1].(Keyword)
	if !ok {
		return ""
	}
	return string(k)
}

func (c Command) Operands() []Value {
	if c.Operator() != "" {
		return c[:len(c)-1]
	}
	return c
}

func (c Command) String() string {
	list := make([]string, len(c))
	for i := range c {
		list[i] = c[i].String()
	}
	return strings.Join(list, " ")
}

// CommandParser splits a content stream into commands. Whether the stream
// holds operators at all is decided once, when the parser is created.
type CommandParser struct {
	parser    *Parser
	parseable bool
	done      bool
}

func NewCommandParser(content []byte, info StreamInfo, opts ...Option) *CommandParser {
	return &CommandParser{
		parser:    NewParser(NewReader(content), opts...),
		parseable: Eligible(info),
	}
}

// Parse returns every command of content. On failure, the commands read
// before the error are returned with it.
func Parse(content []byte, info StreamInfo) ([]Command, error) {
	return NewCommandParser(content, info).Commands()
}

func (c *CommandParser) Parseable() bool {
	return c.parseable
}

// Next returns the following command, or io.EOF when the stream is
// exhausted. After an error, Next always returns io.EOF.
func (c *CommandParser) Next() (Command, error) {
	if !c.parseable || c.done {
		return nil, io.EOF
	}
	var cmd Command
	for {
		val, err := c.parser.ReadObject()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.done = true
			return nil, err
		}
		cmd = append(cmd, val)

		kw, ok := val.(Keyword)
		if !ok || c.parser.tok.Kind() != TokKeyword {
			continue
		}
		if kw == beginImage {
			img, err := readInlineImage(c.parser)
			if err != nil {
				c.done = true
				return nil, err
			}
			cmd = append(cmd[:len(cmd)-1], img, Keyword(endImage))
		}
		return cmd, nil
	}
	c.done = true
	if len(cmd) == 0 {
		return nil, io.EOF
	}
	return cmd, nil
}

func (c *CommandParser) Commands() ([]Command, error) {
	var list []Command
	for {
		cmd, err := c.Next()
		if errors.Is(err, io.EOF) {
			return list, nil
		}
		if err != nil {
			return list, err
		}
		list = append(list, cmd)
	}
}
