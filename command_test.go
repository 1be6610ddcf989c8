package pdfops

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmpty(t *testing.T) {
	for _, str := range []string{"", "   \n\t", "% only a comment", "%a\r\n%b\n  % c"} {
		cmds, err := Parse([]byte(str), nil)
		require.NoError(t, err, str)
		assert.Empty(t, cmds, str)
	}
}

func TestParseMatrix(t *testing.T) {
	cmds, err := Parse([]byte("1 0 0 1 0 0 cm"), nil)
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	cmd := cmds[0]
	require.Len(t, cmd, 7)
	assert.Equal(t, "cm", cmd.Operator())
	want := []int64{1, 0, 0, 1, 0, 0}
	for i, v := range cmd.Operands() {
		n, ok := v.(*Number)
		require.True(t, ok, "operand %d", i)
		got, err := n.Int()
		require.NoError(t, err)
		assert.Equal(t, want[i], got, "operand %d", i)
	}
	assert.Equal(t, Keyword("cm"), cmd[6])
	assert.Equal(t, "1 0 0 1 0 0 cm", cmd.String())
}

func TestParseHexString(t *testing.T) {
	cmds, err := Parse([]byte("<48656C6C6F> Tj"), nil)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Len(t, cmds[0], 2)

	str, ok := cmds[0][0].(String)
	require.True(t, ok)
	assert.Equal(t, "Hello", string(str.Bytes))
	assert.True(t, str.Hex)
	assert.Equal(t, Keyword("Tj"), cmds[0][1])
}

func TestParseNestedOperand(t *testing.T) {
	cmds, err := Parse([]byte("<< /Type /Example /Values [1 2 3] >> op"), nil)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Len(t, cmds[0], 2)

	dict, ok := cmds[0][0].(Dict)
	require.True(t, ok)
	assert.Equal(t, Name("Example"), dict.Get("Type"))
	assert.Equal(t, []int64{1, 2, 3}, dict.GetIntArray("Values"))
	assert.Len(t, dict.GetArray("Values"), 3)
	assert.Equal(t, "op", cmds[0].Operator())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("<< 1 2 >> op"), nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = Parse([]byte("<< /A 1"), nil)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestParsePartial(t *testing.T) {
	cmds, err := Parse([]byte("q 1 0 0 1 10 10 cm [1 2 Q"), nil)
	require.ErrorIs(t, err, ErrUnexpectedEOF)
	require.Len(t, cmds, 2)
	assert.Equal(t, "q", cmds[0].Operator())
	assert.Equal(t, "cm", cmds[1].Operator())
}

func TestParseIdempotent(t *testing.T) {
	content := []byte("BT /F1 12 Tf 72 712 Td [(A) -120 (B)] TJ ET q << /MCID 0 >> BDC EMC Q")
	first, err := Parse(content, nil)
	require.NoError(t, err)
	second, err := Parse(content, nil)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].String(), second[i].String())
	}
	assert.Len(t, first, 9)
}

func TestParseIneligible(t *testing.T) {
	content := []byte("1 0 0 1 0 0 cm BT (x) Tj ET")
	data := []Dict{
		{"Subtype": Name("Image")},
		{"Type": Name("ObjStm")},
		{"Type": Name("Metadata")},
		{"Type": Name("XRef")},
		{"Length1": Int(1024)},
	}
	for _, meta := range data {
		cmds, err := Parse(content, meta)
		require.NoError(t, err, meta.String())
		assert.Empty(t, cmds, meta.String())

		p := NewCommandParser(content, meta)
		assert.False(t, p.Parseable())
		_, err = p.Next()
		assert.ErrorIs(t, err, io.EOF)
	}

	cmds, err := Parse(content, Dict{"Type": Name("XObject"), "Subtype": Name("Form")})
	require.NoError(t, err)
	assert.Len(t, cmds, 4)
}

func TestParseDangling(t *testing.T) {
	cmds, err := Parse([]byte("q 1 2"), nil)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "q", cmds[0].Operator())
	assert.Equal(t, "", cmds[1].Operator())
	assert.Len(t, cmds[1].Operands(), 2)
}

func TestCommandParserNext(t *testing.T) {
	p := NewCommandParser([]byte("q\n0.5 g\nQ"), nil)
	assert.True(t, p.Parseable())

	var ops []string
	for {
		cmd, err := p.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ops = append(ops, cmd.Operator())
	}
	assert.Equal(t, []string{"q", "g", "Q"}, ops)

	_, err := p.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCommandParserStopsAfterError(t *testing.T) {
	p := NewCommandParser([]byte("<< 1 >> x q Q"), nil)
	_, err := p.Next()
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = p.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParseTextOperators(t *testing.T) {
	cmds, err := Parse([]byte("(a) ' 1 2 (b) \" T*"), nil)
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, "'", cmds[0].Operator())
	assert.Equal(t, "\"", cmds[1].Operator())
	assert.Len(t, cmds[1].Operands(), 3)
	assert.Equal(t, "T*", cmds[2].Operator())
}

func TestParseKeywordValues(t *testing.T) {
	cmds, err := Parse([]byte("true null /A false BX"), nil)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, Command{Bool(true), Null{}, Name("A"), Bool(false), Keyword("BX")}, cmds[0])
}
