package pdfops

import (
	"bytes"
	"encoding/ascii85"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"
)

// decodeFilters applies filters in order. Decoding stops on the first image
// codec: the data encoded with it is returned along with the codec name.
func decodeFilters(data []byte, filters []string, parms func(int) Dict) ([]byte, string, error) {
	for i, name := range filters {
		var err error
		switch name = expandName(name); name {
		case "FlateDecode":
			data, err = inflate(data)
			if err == nil {
				data, err = unpredict(data, parms(i))
			}
		case "LZWDecode":
			data, err = unlzw(data, parms(i))
			if err == nil {
				data, err = unpredict(data, parms(i))
			}
		case "ASCIIHexDecode":
			data, err = unhex(data)
		case "ASCII85Decode":
			data, err = un85(data)
		case "RunLengthDecode":
			data, err = unrunlength(data)
		case "Crypt":
		case "DCTDecode", "CCITTFaxDecode", "JPXDecode", "JBIG2Decode":
			return data, name, nil
		default:
			err = fmt.Errorf("filter %s: %w", name, ErrUnsupported)
		}
		if err != nil {
			return nil, "", err
		}
	}
	return data, "", nil
}

func inflate(data []byte) ([]byte, error) {
	z, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		// some writers emit raw deflate data without the zlib header
		f := flate.NewReader(bytes.NewReader(data))
		defer f.Close()
		return readAll(f)
	}
	defer z.Close()
	return readAll(z)
}

// readAll keeps what was decoded before a truncated stream.
func readAll(r io.Reader) ([]byte, error) {
	buf, err := io.ReadAll(r)
	if err == io.ErrUnexpectedEOF && len(buf) > 0 {
		err = nil
	}
	return buf, err
}

func unlzw(data []byte, parms Dict) ([]byte, error) {
	if parms.Has("EarlyChange") && parms.GetInt("EarlyChange") == 0 {
		return nil, fmt.Errorf("lzw without early change: %w", ErrUnsupported)
	}
	r := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	defer r.Close()
	return readAll(r)
}

// limits of the sample layout accepted by the predictors.
const (
	maxColors = 32
	maxBits   = 16
)

func unpredict(data []byte, parms Dict) ([]byte, error) {
	var (
		predictor = intOr(parms, "Predictor", 1)
		colors    = intOr(parms, "Colors", 1)
		bpc       = intOr(parms, "BitsPerComponent", 8)
		columns   = intOr(parms, "Columns", 1)
	)
	if predictor <= 1 || len(data) == 0 {
		return data, nil
	}
	if colors <= 0 || colors > maxColors || bpc <= 0 || bpc > maxBits || columns <= 0 || columns > len(data)*8 {
		return nil, fmt.Errorf("predictor with %d colors, %d bits, %d columns: %w", colors, bpc, columns, ErrSyntax)
	}
	var (
		bpp  = (colors*bpc + 7) / 8
		size = (colors*bpc*columns + 7) / 8
	)
	switch {
	case predictor == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("tiff predictor with %d bits: %w", bpc, ErrUnsupported)
		}
		for i := 0; i+size <= len(data); i += size {
			row := data[i : i+size]
			for j := bpp; j < len(row); j++ {
				row[j] += row[j-bpp]
			}
		}
		return data, nil
	case predictor >= 10:
		return unpng(data, size, bpp)
	default:
		return nil, fmt.Errorf("predictor %d: %w", predictor, ErrUnsupported)
	}
}

func unpng(data []byte, size, bpp int) ([]byte, error) {
	var (
		out  = make([]byte, 0, len(data))
		prev = make([]byte, size)
	)
	for len(data) >= size+1 {
		typ, row := data[0], data[1:size+1]
		for i := range row {
			var left, upleft byte
			if i >= bpp {
				left, upleft = row[i-bpp], prev[i-bpp]
			}
			switch typ {
			case 0:
			case 1:
				row[i] += left
			case 2:
				row[i] += prev[i]
			case 3:
				row[i] += byte((int(left) + int(prev[i])) / 2)
			case 4:
				row[i] += paeth(left, prev[i], upleft)
			default:
				return nil, fmt.Errorf("png filter type %d: %w", typ, ErrSyntax)
			}
		}
		out = append(out, row...)
		prev = row
		data = data[size+1:]
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	var (
		p  = int(a) + int(b) - int(c)
		pa = abs(p - int(a))
		pb = abs(p - int(b))
		pc = abs(p - int(c))
	)
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func unhex(data []byte) ([]byte, error) {
	var (
		out []byte
		hi  byte
		odd bool
	)
	for _, b := range data {
		if b == rangle {
			break
		}
		if isBlank(b) {
			continue
		}
		n, ok := fromHexChar(b)
		if !ok {
			return nil, fmt.Errorf("invalid hex character %q: %w", b, ErrSyntax)
		}
		if odd {
			out = append(out, (hi<<4)|n)
		} else {
			hi = n
		}
		odd = !odd
	}
	if odd {
		out = append(out, hi<<4)
	}
	return out, nil
}

func un85(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	if x := bytes.Index(data, []byte("~>")); x >= 0 {
		data = data[:x]
	}
	out, err := io.ReadAll(ascii85.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out, nil
}

func unrunlength(data []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, fmt.Errorf("run length literal: %w", ErrUnexpectedEOF)
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("run length repeat: %w", ErrUnexpectedEOF)
			}
			out = append(out, bytes.Repeat(data[i:i+1], 257-n)...)
			i++
		}
	}
	return out, nil
}

func intOr(d Dict, key string, def int) int {
	if !d.Has(key) {
		return def
	}
	return int(d.GetInt(key))
}
