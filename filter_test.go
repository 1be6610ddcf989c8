package pdfops

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noParms(int) Dict {
	return nil
}

func TestDecodeFilters(t *testing.T) {
	data := []struct {
		name    string
		input   []byte
		filters []string
		want    []byte
	}{
		{
			name:    "hex",
			input:   []byte("48 65 6C6C\n6F>ignored"),
			filters: []string{"ASCIIHexDecode"},
			want:    []byte("Hello"),
		},
		{
			name:    "hex-odd",
			input:   []byte("7>"),
			filters: []string{"AHx"},
			want:    []byte{0x70},
		},
		{
			name:    "ascii85",
			input:   []byte("<~87cURD_*#4\nDfTZ)~>"),
			filters: []string{"ASCII85Decode"},
			want:    []byte("Hello, World"),
		},
		{
			name:    "runlength",
			input:   []byte{2, 'a', 'b', 'c', 254, 'x', 128, 'z'},
			filters: []string{"RunLengthDecode"},
			want:    []byte("abcxxx"),
		},
		{
			name:    "lzw",
			input:   []byte{0x80, 0x10, 0x60, 0x20},
			filters: []string{"LZWDecode"},
			want:    []byte("A"),
		},
		{
			name:    "chain",
			input:   []byte("3C7E3573627E3E>"),
			filters: []string{"ASCIIHexDecode", "ASCII85Decode"},
			want:    []byte("AB"),
		},
		{
			name:  "none",
			input: []byte("raw"),
			want:  []byte("raw"),
		},
	}
	for _, d := range data {
		got, codec, err := decodeFilters(d.input, d.filters, noParms)
		require.NoError(t, err, d.name)
		assert.Equal(t, "", codec, d.name)
		assert.Equal(t, d.want, got, d.name)
	}
}

func TestDecodeFiltersImageCodec(t *testing.T) {
	got, codec, err := decodeFilters([]byte("4142>"), []string{"ASCIIHexDecode", "DCTDecode"}, noParms)
	require.NoError(t, err)
	assert.Equal(t, "DCTDecode", codec)
	assert.Equal(t, []byte("AB"), got)
}

func TestDecodeFiltersUnsupported(t *testing.T) {
	_, _, err := decodeFilters([]byte("x"), []string{"Foo"}, noParms)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, _, err = decodeFilters([]byte("zz>"), []string{"ASCIIHexDecode"}, noParms)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestFlatePredictor(t *testing.T) {
	raw := []byte{
		2, 1, 2, 3,
		1, 1, 1, 1,
		2, 1, 1, 1,
		3, 1, 1, 1,
		4, 0, 0, 0,
	}
	var buf bytes.Buffer
	z := zlib.NewWriter(&buf)
	z.Write(raw)
	require.NoError(t, z.Close())

	parms := func(int) Dict {
		return Dict{"Predictor": Int(12), "Columns": Int(3)}
	}
	got, _, err := decodeFilters(buf.Bytes(), []string{"FlateDecode"}, parms)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 1, 2, 3, 2, 3, 4, 2, 3, 4, 2, 3, 4}, got)
}

func TestTIFFPredictor(t *testing.T) {
	parms := Dict{"Predictor": Int(2), "Columns": Int(3)}
	got, err := unpredict([]byte{1, 1, 1, 5, 0, 1}, parms)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 5, 5, 6}, got)
}

func TestPredictorInvalidLayout(t *testing.T) {
	data := []Dict{
		{"Predictor": Int(2), "Columns": Int(0)},
		{"Predictor": Int(12), "Columns": Int(0)},
		{"Predictor": Int(2), "Columns": Int(-1)},
		{"Predictor": Int(12), "Columns": Int(-1)},
		{"Predictor": Int(12), "Columns": Int(1), "Colors": Int(0)},
		{"Predictor": Int(12), "Columns": Int(1), "BitsPerComponent": Int(-8)},
		{"Predictor": Int(12), "Columns": Int(1 << 40)},
	}
	for _, parms := range data {
		_, err := unpredict([]byte{0, 1, 2, 3}, parms)
		assert.ErrorIs(t, err, ErrSyntax, "%v", parms)
	}
}

func TestPNGPredictorRGB(t *testing.T) {
	parms := Dict{"Predictor": Int(15), "Columns": Int(2), "Colors": Int(3)}
	got, err := unpredict([]byte{1, 10, 20, 30, 1, 1, 1}, parms)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 11, 21, 31}, got)
}

func TestInflateRaw(t *testing.T) {
	var buf bytes.Buffer
	z := zlib.NewWriter(&buf)
	z.Write([]byte("deflated"))
	require.NoError(t, z.Close())

	// strip the zlib header and checksum
	raw := buf.Bytes()[2 : buf.Len()-4]
	got, err := inflate(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("deflated"), got)
}
