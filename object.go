package pdfops

import (
	"bytes"
	"fmt"
	"image"
	"io"
)

// Pointer locates an object: at Offset in the file, or at index Offset of
// the object stream Owner.
type Pointer struct {
	Ref    Reference
	Owner  int
	Offset int64
	free   bool
}

func (p Pointer) isEmbed() bool {
	return p.Owner > 0
}

// Object is an indirect object of a document. Content holds the stream
// bytes, decrypted but still encoded.
type Object struct {
	Ref Reference
	Dict
	Data    Value
	Content []byte
	stream  bool
}

func (o Object) IsStream() bool {
	return o.stream
}

func (o Object) IsSignature() bool {
	return o.Type() == "Sig"
}

func (o Object) IsPage() bool {
	return o.Type() == "Page"
}

func (o Object) IsImage() bool {
	return o.Subtype() == "Image"
}

func (o Object) IsMeta() bool {
	return o.Type() == "Metadata"
}

func (o Object) IsObjectStream() bool {
	return o.Type() == "ObjStm"
}

func (o Object) IsXRef() bool {
	return o.Type() == "XRef"
}

// Value returns the dictionary of the object, or its value if it is not a
// dictionary.
func (o Object) Value() Value {
	if o.Dict != nil {
		return o.Dict
	}
	if o.Data == nil {
		return Null{}
	}
	return o.Data
}

// Body decodes the content of a stream. Data encoded with an image codec
// (DCT, CCITT, JPX, JBIG2) is returned as is.
func (o Object) Body() ([]byte, error) {
	if !o.stream {
		return nil, fmt.Errorf("object %s is not a stream", o.Ref)
	}
	buf := make([]byte, len(o.Content))
	copy(buf, o.Content)
	body, _, err := decodeFilters(buf, o.Filters(), o.DecodeParms)
	return body, err
}

// Image decodes an image XObject.
func (o Object) Image() (image.Image, error) {
	if !o.IsImage() {
		return nil, fmt.Errorf("object %s is not an image", o.Ref)
	}
	img := InlineImage{
		Params: o.Dict,
		Data:   o.Content,
	}
	return img.Image()
}

// readIndirect reads "num gen obj value [stream ... endstream] endobj" at
// the current position of p. length resolves a /Length given by reference.
func readIndirect(p *Parser, length func(Value) int64) (Object, error) {
	var obj Object
	num, err := readInt(p.tok)
	if err != nil {
		return obj, err
	}
	gen, err := readInt(p.tok)
	if err != nil {
		return obj, err
	}
	obj.Ref = Reference{Num: int(num), Gen: int(gen)}
	if err := expectKeyword(p.tok, kwObj); err != nil {
		return obj, err
	}
	val, err := p.ReadObject()
	if err != nil {
		return obj, p.unexpectedEOF(err, "object without value")
	}
	if d, ok := val.(Dict); ok {
		obj.Dict = d
	} else {
		obj.Data = val
	}

	mark := p.tok.Mark()
	if err := p.tok.Next(); err != nil || p.tok.Kind() != TokKeyword || string(p.tok.Bytes()) != kwStream {
		// endobj is often missing or misplaced, the value is enough
		p.tok.Reset(mark)
		return obj, nil
	}
	r := p.tok.r
	r.SkipEOL()

	start := r.Tell()
	obj.stream = true
	if n := length(obj.Get("Length")); n >= 0 && start+n <= r.Size() {
		end := start + n
		r.Seek(end, io.SeekStart)
		r.Skip()
		if r.StartsWith([]byte(kwEndstream)) {
			obj.Content = r.slice(start, end)
			r.Discard(len(kwEndstream))
			return obj, nil
		}
	}
	r.Seek(start, io.SeekStart)
	x := r.Index([]byte(kwEndstream))
	if x < 0 {
		return obj, p.tok.failAt(start, ErrUnexpectedEOF, "stream without endstream")
	}
	content := r.slice(start, start+int64(x))
	content = bytes.TrimSuffix(content, []byte{nl})
	content = bytes.TrimSuffix(content, []byte{cr})
	obj.Content = content
	r.Discard(x + len(kwEndstream))
	return obj, nil
}

func readInt(t *Tokenizer) (int64, error) {
	if err := t.Next(); err != nil {
		if err == io.EOF {
			return 0, t.Fail(ErrUnexpectedEOF, "integer expected")
		}
		return 0, err
	}
	if t.Kind() != TokNumber {
		return 0, t.Fail(ErrUnexpectedToken, fmt.Sprintf("integer expected, got %s %q", t.Kind(), t.Raw()))
	}
	n := NewNumber(t.Bytes())
	if !n.IsInt() {
		return 0, t.Fail(ErrMalformedNumber, fmt.Sprintf("integer expected, got %s", n))
	}
	return n.Int()
}

func expectKeyword(t *Tokenizer, kw string) error {
	if err := t.Next(); err != nil {
		if err == io.EOF {
			return t.Fail(ErrUnexpectedEOF, kw+" expected")
		}
		return err
	}
	if t.Kind() != TokKeyword || string(t.Bytes()) != kw {
		return t.Fail(ErrUnexpectedToken, fmt.Sprintf("%s expected, got %q", kw, t.Raw()))
	}
	return nil
}

// objectStream holds the decoded body of an object stream and the offsets
// of the objects it contains.
type objectStream struct {
	body    []byte
	first   int64
	refs    []Reference
	offsets []int64
}

func readObjectStream(obj Object) (*objectStream, error) {
	if !obj.IsObjectStream() {
		return nil, fmt.Errorf("object %s is not an object stream", obj.Ref)
	}
	body, err := obj.Body()
	if err != nil {
		return nil, err
	}
	var (
		first = obj.GetInt("First")
		count = int(obj.GetInt("N"))
		stm   = objectStream{body: body, first: first}
	)
	if first < 0 || first > int64(len(body)) {
		return nil, fmt.Errorf("object stream %s: first offset %d: %w", obj.Ref, first, ErrSyntax)
	}
	tok := NewTokenizer(NewReader(body[:first]))
	for i := 0; i < count; i++ {
		num, err := readInt(tok)
		if err != nil {
			return nil, err
		}
		off, err := readInt(tok)
		if err != nil {
			return nil, err
		}
		stm.refs = append(stm.refs, Reference{Num: int(num)})
		stm.offsets = append(stm.offsets, off)
	}
	return &stm, nil
}

func (s *objectStream) object(index int64) (Object, error) {
	var obj Object
	if index < 0 || index >= int64(len(s.refs)) {
		return obj, fmt.Errorf("object at index %d %w", index, ErrMissing)
	}
	offset := s.first + s.offsets[index]
	if offset < s.first || offset > int64(len(s.body)) {
		return obj, fmt.Errorf("object at offset %d: %w", offset, ErrSyntax)
	}
	p := NewParser(NewReader(s.body[offset:]), WithReferences())
	val, err := p.ReadObject()
	if err != nil {
		return obj, p.unexpectedEOF(err, "object without value")
	}
	obj.Ref = s.refs[index]
	if d, ok := val.(Dict); ok {
		obj.Dict = d
	} else {
		obj.Data = val
	}
	return obj, nil
}

// readXRefStream decodes the entries of a cross-reference stream.
func readXRefStream(obj Object) ([]Pointer, error) {
	buf, err := obj.Body()
	if err != nil {
		return nil, err
	}
	var (
		r  = NewReader(buf)
		ix = obj.GetIntArray("Index")
		ws = obj.GetIntArray("W")
		xs = make([]int64, 3)
		ps []Pointer
	)
	if len(ws) < 3 {
		return nil, fmt.Errorf("xref stream: W entry %w", ErrMissing)
	}
	if len(ix) == 0 {
		ix = append(ix, 0, obj.GetInt("Size"))
	}
	for k := 0; k+1 < len(ix); k += 2 {
		for j := int64(0); j < ix[k+1] && !r.AtEOF(); j++ {
			num := int(ix[k] + j)
			for i := 0; i < 3; i++ {
				xs[i] = r.ReadInt(ws[i])
			}
			if ws[0] == 0 {
				xs[0] = 1
			}
			var p Pointer
			switch xs[0] {
			case 0:
				p.Ref = Reference{Num: num, Gen: int(xs[2])}
				p.free = true
			case 1:
				p.Ref = Reference{Num: num, Gen: int(xs[2])}
				p.Offset = xs[1]
			case 2:
				p.Ref = Reference{Num: num}
				p.Owner = int(xs[1])
				p.Offset = xs[2]
			default:
				continue
			}
			ps = append(ps, p)
		}
	}
	return ps, nil
}
