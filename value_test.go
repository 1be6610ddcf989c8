package pdfops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueString(t *testing.T) {
	data := []struct {
		value Value
		want  string
	}{
		{value: Null{}, want: "null"},
		{value: Bool(true), want: "true"},
		{value: Keyword("Tj"), want: "Tj"},
		{value: Name("Type"), want: "/Type"},
		{value: Name("A B#"), want: "/A#20B#23"},
		{value: Name("a/b"), want: "/a#2Fb"},
		{value: String{Bytes: []byte("a(b)c\\")}, want: `(a\(b\)c\\)`},
		{value: String{Bytes: []byte("x\ny\x01")}, want: `(x\ny\001)`},
		{value: String{Bytes: []byte{0xca, 0xfe}, Hex: true}, want: "<CAFE>"},
		{value: Array{Int(1), Name("N"), Array{}}, want: "[1 /N []]"},
		{value: Dict{}, want: "<< >>"},
		{value: Dict{"B": Int(2), "A": Reference{Num: 4}}, want: "<< /A 4 0 R /B 2 >>"},
	}
	for _, d := range data {
		assert.Equal(t, d.want, d.value.String())
	}
}

func TestStringText(t *testing.T) {
	data := []struct {
		bytes []byte
		want  string
	}{
		{bytes: []byte("plain"), want: "plain"},
		{bytes: []byte{0xfe, 0xff, 0x00, 0x48, 0x00, 0xe9}, want: "Hé"},
		{bytes: []byte{0xff, 0xfe, 0x48, 0x00, 0xe9, 0x00}, want: "Hé"},
		{bytes: []byte("\xef\xbb\xbfcaf\xc3\xa9"), want: "café"},
		{bytes: []byte("caf\xe9 \x80"), want: "café €"},
	}
	for _, d := range data {
		s := String{Bytes: d.bytes}
		assert.Equal(t, d.want, s.Text())
	}
}

func TestDictAccessors(t *testing.T) {
	d := Dict{
		"Type":   Name("Page"),
		"Count":  Int(3),
		"Scale":  NewNumber([]byte("1.5")),
		"Title":  String{Bytes: []byte("title")},
		"Kids":   Array{Reference{Num: 1}, Reference{Num: 2}},
		"Sizes":  Array{Int(1), Name("x"), Int(3)},
		"Names":  Array{Name("a"), String{Bytes: []byte("b")}},
		"Filter": Array{Name("FlateDecode"), Name("ASCII85Decode")},
		"DecodeParms": Array{
			Null{},
			Dict{"Predictor": Int(12)},
		},
		"Flag": Bool(true),
	}
	assert.Equal(t, "Page", d.Type())
	assert.Equal(t, "", d.Subtype())
	assert.Equal(t, int64(3), d.GetInt("Count"))
	assert.Equal(t, int64(0), d.GetInt("Missing"))
	assert.Equal(t, 1.5, d.GetFloat("Scale"))
	assert.Equal(t, "title", d.GetString("Title"))
	assert.Equal(t, "Page", d.GetString("Type"))
	assert.Equal(t, []int64{1, 3}, d.GetIntArray("Sizes"))
	assert.Equal(t, []string{"a", "b"}, d.GetStringArray("Names"))
	assert.Equal(t, []string{"FlateDecode", "ASCII85Decode"}, d.Filters())
	assert.Nil(t, d.DecodeParms(0))
	assert.Equal(t, int64(12), d.DecodeParms(1).GetInt("Predictor"))
	assert.True(t, d.GetBool("Flag"))
	assert.True(t, d.GetDict("Missing").IsEmpty())

	ref, ok := d.GetReference("Kids")
	assert.False(t, ok)
	assert.Equal(t, Reference{}, ref)
	assert.Equal(t, []Name{"Count", "DecodeParms", "Filter", "Flag", "Kids", "Names", "Scale", "Sizes", "Title", "Type"}, d.Keys())
}

func TestDictLinearized(t *testing.T) {
	d := Dict{"Linearized": Int(1), "L": Int(2048)}
	assert.True(t, d.Linearized())
	assert.Equal(t, "Linearized", d.Type())
	assert.Equal(t, int64(2048), d.Length())
}
