package pdfops

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strings"

	"golang.org/x/image/ccitt"
)

const (
	beginImage = "BI"
	imageData  = "ID"
	endImage   = "EI"
)

var abbreviatedKeys = map[string]string{
	"BitsPerComponent": "BPC",
	"ColorSpace":       "CS",
	"Decode":           "D",
	"DecodeParms":      "DP",
	"Filter":           "F",
	"Height":           "H",
	"ImageMask":        "IM",
	"Interpolate":      "I",
	"Length":           "L",
	"Width":            "W",
}

var abbreviatedNames = map[string]string{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"I":    "Indexed",
	"AHx":  "ASCIIHexDecode",
	"A85":  "ASCII85Decode",
	"LZW":  "LZWDecode",
	"Fl":   "FlateDecode",
	"RL":   "RunLengthDecode",
	"CCF":  "CCITTFaxDecode",
	"DCT":  "DCTDecode",
}

func expandName(n string) string {
	if x, ok := abbreviatedNames[n]; ok {
		return x
	}
	return n
}

// InlineImage is an image embedded in a content stream between BI and EI.
// Params keeps the keys as written, abbreviated or not.
type InlineImage struct {
	Params Dict
	Data   []byte
}

func (i *InlineImage) String() string {
	var str strings.Builder
	str.WriteString(beginImage)
	for _, k := range i.Params.Keys() {
		fmt.Fprintf(&str, " %s %s", k, i.Params[k])
	}
	fmt.Fprintf(&str, " %s <%d bytes>", imageData, len(i.Data))
	return str.String()
}

func (*InlineImage) isValue() {}

func (i *InlineImage) Type() string    { return "XObject" }
func (i *InlineImage) Subtype() string { return "Image" }

// Has reports whether the image dictionary has key, under its full or
// abbreviated form.
func (i *InlineImage) Has(key string) bool {
	return i.param(key) != nil
}

func (i *InlineImage) param(key string) Value {
	if v := i.Params.Get(key); v != nil {
		return v
	}
	if a, ok := abbreviatedKeys[key]; ok {
		return i.Params.Get(a)
	}
	return nil
}

func (i *InlineImage) intParam(key string, def int) int {
	n, ok := i.param(key).(*Number)
	if !ok {
		return def
	}
	v, err := n.Int()
	if err != nil {
		return def
	}
	return int(v)
}

func (i *InlineImage) Width() int  { return i.intParam("Width", 0) }
func (i *InlineImage) Height() int { return i.intParam("Height", 0) }

func (i *InlineImage) BitsPerComponent() int {
	if i.ImageMask() {
		return 1
	}
	return i.intParam("BitsPerComponent", 8)
}

func (i *InlineImage) ImageMask() bool {
	b, _ := i.param("ImageMask").(Bool)
	return bool(b)
}

// ColorSpace returns the expanded name of the color space; for an indexed
// color space given as an array, it returns Indexed.
func (i *InlineImage) ColorSpace() string {
	switch v := i.param("ColorSpace").(type) {
	case Name:
		return expandName(string(v))
	case Array:
		if len(v) > 0 {
			if n, ok := v[0].(Name); ok {
				return expandName(string(n))
			}
		}
	}
	return ""
}

func (i *InlineImage) Filters() []string {
	var list []string
	switch v := i.param("Filter").(type) {
	case Name:
		list = append(list, expandName(string(v)))
	case Array:
		for j := range v {
			if n, ok := v[j].(Name); ok {
				list = append(list, expandName(string(n)))
			}
		}
	}
	return list
}

func (i *InlineImage) DecodeParms(j int) Dict {
	switch v := i.param("DecodeParms").(type) {
	case Dict:
		if j == 0 {
			return v
		}
	case Array:
		if j < len(v) {
			d, _ := v[j].(Dict)
			return d
		}
	}
	return nil
}

func (i *InlineImage) components() int {
	if i.ImageMask() {
		return 1
	}
	switch i.ColorSpace() {
	case "DeviceGray", "CalGray", "Indexed":
		return 1
	case "DeviceRGB", "CalRGB", "Lab":
		return 3
	case "DeviceCMYK":
		return 4
	default:
		return 0
	}
}

func (i *InlineImage) rowSize() int {
	return (i.Width()*i.BitsPerComponent()*i.components() + 7) / 8
}

// dataLength returns the size of the encoded samples when it can be known
// before reading them, -1 otherwise.
func (i *InlineImage) dataLength() int64 {
	if n, ok := i.param("Length").(*Number); ok {
		if v, err := n.Int(); err == nil && v >= 0 {
			return v
		}
	}
	if len(i.Filters()) > 0 {
		return -1
	}
	w, h := i.Width(), i.Height()
	if w <= 0 || h <= 0 || i.components() == 0 {
		return -1
	}
	return int64(h * i.rowSize())
}

// readInlineImage is called with the tokenizer positioned right after BI.
// It reads the image dictionary up to ID, then the samples up to EI, and
// leaves EI as the current token.
func readInlineImage(p *Parser) (*InlineImage, error) {
	img := InlineImage{
		Params: make(Dict),
	}
	for {
		key, err := p.ReadObject()
		if err != nil {
			return nil, p.unexpectedEOF(err, "inline image without ID")
		}
		if kw, ok := key.(Keyword); ok && kw == imageData && p.tok.Kind() == TokKeyword {
			break
		}
		name, ok := key.(Name)
		if !ok {
			return nil, p.tok.Fail(ErrInvalidKey, fmt.Sprintf("%s in inline image", key))
		}
		val, err := p.ReadObject()
		if err != nil {
			return nil, p.unexpectedEOF(err, "inline image without ID")
		}
		img.Params[name] = val
	}

	r := p.tok.r
	if c, ok := r.peek(0); ok && c == cr {
		r.ReadByte()
		if c, ok := r.peek(0); ok && c == nl {
			r.ReadByte()
		}
	} else if ok && isBlank(c) {
		r.ReadByte()
	}
	var (
		start = int(r.Tell())
		end   = -1
		next  int
	)
	if n := img.dataLength(); n >= 0 && n <= int64(len(r.buf)-start) {
		if x, ok := matchImageEnd(r.buf, start+int(n)); ok {
			end, next = start+int(n), x
		}
	}
	if end < 0 {
		var ok bool
		if end, next, ok = scanImageEnd(r.buf, start); !ok {
			return nil, p.tok.failAt(int64(start), ErrUnexpectedEOF, "inline image without EI")
		}
	}
	img.Data = append([]byte(nil), r.buf[start:end]...)
	p.tok.setKeyword(int64(next-len(endImage)), int64(next))
	return &img, nil
}

// matchImageEnd checks that EI, possibly preceded by whitespace, appears at
// offset and returns the offset following it.
func matchImageEnd(buf []byte, offset int) (int, bool) {
	for offset < len(buf) && isBlank(buf[offset]) {
		offset++
	}
	if !bytes.HasPrefix(buf[offset:], []byte(endImage)) {
		return 0, false
	}
	offset += len(endImage)
	if offset < len(buf) && !isBlank(buf[offset]) && !isDelimiter(buf[offset]) {
		return 0, false
	}
	return offset, true
}

// scanImageEnd looks for the first EI surrounded by whitespace. The
// whitespace before EI is not part of the samples.
func scanImageEnd(buf []byte, start int) (int, int, bool) {
	for i := start; i+1 < len(buf); i++ {
		if buf[i] != 'E' || buf[i+1] != 'I' {
			continue
		}
		if i > start && !isBlank(buf[i-1]) {
			continue
		}
		if j := i + 2; j < len(buf) && !isBlank(buf[j]) && !isDelimiter(buf[j]) {
			continue
		}
		end := i
		if end > start && isBlank(buf[end-1]) {
			end--
			if buf[end] == nl && end > start && buf[end-1] == cr {
				end--
			}
		}
		return end, i + 2, true
	}
	return 0, 0, false
}

// Image decodes the samples of the inline image.
func (i *InlineImage) Image() (image.Image, error) {
	data, codec, err := decodeFilters(i.Data, i.Filters(), i.DecodeParms)
	if err != nil {
		return nil, err
	}
	switch codec {
	case "":
		return i.decodeSamples(data)
	case "DCTDecode":
		return jpeg.Decode(bytes.NewReader(data))
	case "CCITTFaxDecode":
		return i.decodeFax(data, i.DecodeParms(len(i.Filters())-1))
	default:
		return nil, fmt.Errorf("%s: %w", codec, ErrUnsupported)
	}
}

func (i *InlineImage) decodeFax(data []byte, parms Dict) (image.Image, error) {
	cols, rows := i.Width(), i.Height()
	if parms.Has("Columns") {
		cols = int(parms.GetInt("Columns"))
	}
	if parms.Has("Rows") {
		rows = int(parms.GetInt("Rows"))
	}
	if cols <= 0 {
		return nil, fmt.Errorf("ccitt image without width: %w", ErrSyntax)
	}
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}
	sf := ccitt.Group3
	if parms.GetInt("K") < 0 {
		sf = ccitt.Group4
	}
	opts := ccitt.Options{
		Invert: parms.GetBool("BlackIs1"),
	}
	bits, err := io.ReadAll(ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, cols, rows, &opts))
	if err != nil {
		return nil, err
	}
	stride := (cols + 7) / 8
	if rows <= 0 {
		rows = len(bits) / stride
	}
	gray := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows && (y+1)*stride <= len(bits); y++ {
		for x := 0; x < cols; x++ {
			if sampleAt(bits[y*stride:], x, 1) == 1 {
				gray.Pix[y*gray.Stride+x] = 0xff
			}
		}
	}
	return gray, nil
}

func (i *InlineImage) decodeSamples(data []byte) (image.Image, error) {
	var (
		w    = i.Width()
		h    = i.Height()
		bpc  = i.BitsPerComponent()
		row  = i.rowSize()
		rect = image.Rect(0, 0, w, h)
	)
	if w <= 0 || h <= 0 || i.components() == 0 {
		return nil, fmt.Errorf("inline image without size or color space: %w", ErrSyntax)
	}
	if w > len(data)*8 || h > len(data)*8 || len(data) < h*row {
		return nil, fmt.Errorf("inline image: %d bytes for %d expected: %w", len(data), h*row, ErrUnexpectedEOF)
	}
	switch bpc {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("%d bits per component: %w", bpc, ErrUnsupported)
	}
	switch cs := i.ColorSpace(); {
	case i.ImageMask() || cs == "DeviceGray" || cs == "CalGray":
		var (
			img    = image.NewGray(rect)
			top    = 1<<bpc - 1
			invert = i.decodeInverted()
		)
		for y := 0; y < h; y++ {
			line := data[y*row:]
			for x := 0; x < w; x++ {
				v := sampleAt(line, x, bpc)
				if invert {
					v = top - v
				}
				img.Pix[y*img.Stride+x] = uint8(v * 255 / top)
			}
		}
		return img, nil
	case cs == "Indexed":
		pal, err := i.palette()
		if err != nil {
			return nil, err
		}
		img := image.NewPaletted(rect, pal)
		for y := 0; y < h; y++ {
			line := data[y*row:]
			for x := 0; x < w; x++ {
				img.Pix[y*img.Stride+x] = uint8(sampleAt(line, x, bpc))
			}
		}
		return img, nil
	case bpc != 8:
		return nil, fmt.Errorf("%s with %d bits per component: %w", cs, bpc, ErrUnsupported)
	case cs == "DeviceRGB" || cs == "CalRGB":
		img := image.NewRGBA(rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := data[y*row+x*3:]
				img.SetRGBA(x, y, color.RGBA{R: s[0], G: s[1], B: s[2], A: 0xff})
			}
		}
		return img, nil
	case cs == "DeviceCMYK":
		img := image.NewCMYK(rect)
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:], data[y*row:y*row+w*4])
		}
		return img, nil
	default:
		return nil, fmt.Errorf("color space %s: %w", cs, ErrUnsupported)
	}
}

// decodeInverted reports a Decode array mapping samples from 1 to 0.
func (i *InlineImage) decodeInverted() bool {
	arr, _ := i.param("Decode").(Array)
	if len(arr) < 2 {
		return false
	}
	lo, ok1 := arr[0].(*Number)
	hi, ok2 := arr[1].(*Number)
	if !ok1 || !ok2 {
		return false
	}
	l, _ := lo.Float()
	u, _ := hi.Float()
	return l > u
}

func (i *InlineImage) palette() (color.Palette, error) {
	cs, _ := i.param("ColorSpace").(Array)
	if len(cs) < 4 {
		return nil, fmt.Errorf("indexed color space: %w", ErrSyntax)
	}
	var base string
	if n, ok := cs[1].(Name); ok {
		base = expandName(string(n))
	}
	lookup, ok := cs[3].(String)
	if !ok {
		return nil, fmt.Errorf("indexed lookup table: %w", ErrUnsupported)
	}
	var (
		tab = lookup.Bytes
		pal color.Palette
	)
	switch base {
	case "DeviceGray":
		for _, g := range tab {
			pal = append(pal, color.Gray{Y: g})
		}
	case "DeviceRGB":
		for j := 0; j+2 < len(tab); j += 3 {
			pal = append(pal, color.RGBA{R: tab[j], G: tab[j+1], B: tab[j+2], A: 0xff})
		}
	case "DeviceCMYK":
		for j := 0; j+3 < len(tab); j += 4 {
			pal = append(pal, color.CMYK{C: tab[j], M: tab[j+1], Y: tab[j+2], K: tab[j+3]})
		}
	default:
		return nil, fmt.Errorf("indexed base %s: %w", base, ErrUnsupported)
	}
	if len(pal) == 0 {
		return nil, fmt.Errorf("empty indexed lookup table: %w", ErrSyntax)
	}
	return pal, nil
}

// sampleAt returns sample x of a row packed with bpc bits per sample, most
// significant bits first.
func sampleAt(row []byte, x, bpc int) int {
	if bpc == 8 {
		return int(row[x])
	}
	var (
		bit   = x * bpc
		shift = 8 - bpc - bit%8
		mask  = 1<<bpc - 1
	)
	return int(row[bit/8]>>shift) & mask
}
