package pdfops

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

const (
	kwObj       = "obj"
	kwStream    = "stream"
	kwEndstream = "endstream"
	kwXRef      = "xref"
	kwTrailer   = "trailer"
	kwStartxref = "startxref"
)

var magic = []byte("%PDF-")

// MinRead is the size of the window searched for the header and for the
// last startxref.
const MinRead = 1024

func readFile(file string) (*Document, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return NewDocument(buf)
}

// NewDocument reads the cross-reference information of the PDF in buf. When
// it is missing or broken, the objects are located by scanning the file.
func NewDocument(buf []byte) (*Document, error) {
	doc := Document{
		inner:   NewReader(buf),
		xref:    make(map[int]Pointer),
		trailer: make(Dict),
		streams: make(map[int]*objectStream),
	}
	if err := doc.readHeader(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	offset, err := readStartxref(doc.inner)
	if err == nil {
		err = doc.readXRefChain(offset)
	}
	if err != nil || doc.trailer.Get("Root") == nil {
		if err := doc.rebuild(); err != nil {
			return nil, fmt.Errorf("read xref: %w", err)
		}
	}
	doc.catalog, _ = doc.trailer.GetReference("Root")
	doc.info, _ = doc.trailer.GetReference("Info")
	if ids := doc.trailer.GetArray("ID"); len(ids) > 0 {
		if s, ok := ids[0].(String); ok {
			doc.fileid = s.Bytes
		}
	}
	if err := doc.setupKey(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) readHeader() error {
	r := d.inner.Section(0, MinRead)
	x := r.Index(magic)
	if x < 0 {
		return fmt.Errorf("%s %w", magic, ErrMissing)
	}
	r.Discard(x + len(magic))
	line, _ := r.ReadLine()
	if len(line) == 0 {
		return fmt.Errorf("pdf version %w", ErrMissing)
	}
	d.version = string(line)

	for r.Skip(); r.StartsWith([]byte{percent}); r.Skip() {
		r.ReadLine()
	}
	d.inner.Seek(r.Tell(), io.SeekStart)
	p := NewParser(d.inner, WithReferences())
	if obj, err := readIndirect(p, d.length); err == nil {
		d.linearized = obj.Linearized()
	}
	return nil
}

func readStartxref(r *Reader) (int64, error) {
	x := r.LastIndex([]byte(kwStartxref))
	if x < 0 {
		return 0, fmt.Errorf("%s %w", kwStartxref, ErrMissing)
	}
	r.Seek(x+int64(len(kwStartxref)), io.SeekStart)
	return readInt(NewTokenizer(r))
}

// readXRefChain reads the section at offset and the older ones it points
// to. Entries of newer sections take precedence.
func (d *Document) readXRefChain(offset int64) error {
	seen := make(map[int64]bool)
	for offset > 0 && !seen[offset] {
		seen[offset] = true
		if offset >= d.inner.Size() {
			return fmt.Errorf("xref offset %d out of range: %w", offset, ErrSyntax)
		}
		d.inner.Seek(offset, io.SeekStart)
		d.inner.Skip()

		var (
			trailer Dict
			err     error
		)
		if d.inner.StartsWith([]byte(kwXRef)) {
			trailer, err = d.readXRefTable()
			if err == nil && trailer.Has("XRefStm") {
				_, err = d.readXRefStreamAt(trailer.GetInt("XRefStm"))
			}
		} else {
			trailer, err = d.readXRefStreamAt(offset)
		}
		if err != nil {
			return err
		}
		for k, v := range trailer {
			if _, ok := d.trailer[k]; !ok {
				d.trailer[k] = v
			}
		}
		offset = trailer.GetInt("Prev")
	}
	return nil
}

func (d *Document) readXRefTable() (Dict, error) {
	p := NewParser(d.inner, WithReferences())
	if err := expectKeyword(p.tok, kwXRef); err != nil {
		return nil, err
	}
	for {
		if err := p.tok.Next(); err != nil {
			return nil, p.unexpectedEOF(err, "xref without trailer")
		}
		if p.tok.Kind() == TokKeyword && string(p.tok.Bytes()) == kwTrailer {
			break
		}
		if p.tok.Kind() != TokNumber {
			return nil, p.tok.Fail(ErrUnexpectedToken, fmt.Sprintf("xref subsection %q", p.tok.Raw()))
		}
		first, err := NewNumber(p.tok.Bytes()).Int()
		if err != nil {
			return nil, p.tok.Fail(ErrMalformedNumber, "xref subsection")
		}
		count, err := readInt(p.tok)
		if err != nil {
			return nil, err
		}
		for i := int64(0); i < count; i++ {
			offset, err := readInt(p.tok)
			if err != nil {
				return nil, err
			}
			gen, err := readInt(p.tok)
			if err != nil {
				return nil, err
			}
			if err := p.tok.Next(); err != nil || p.tok.Kind() != TokKeyword {
				return nil, p.tok.Fail(ErrUnexpectedToken, "xref entry type")
			}
			ptr := Pointer{
				Ref:    Reference{Num: int(first + i), Gen: int(gen)},
				Offset: offset,
			}
			switch string(p.tok.Bytes()) {
			case "n":
			case "f":
				ptr.free = true
			default:
				return nil, p.tok.Fail(ErrUnexpectedToken, fmt.Sprintf("xref entry type %q", p.tok.Raw()))
			}
			d.addPointer(ptr)
		}
	}
	val, err := p.ReadObject()
	if err != nil {
		return nil, p.unexpectedEOF(err, "empty trailer")
	}
	trailer, ok := val.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary: %w", ErrSyntax)
	}
	return trailer, nil
}

func (d *Document) readXRefStreamAt(offset int64) (Dict, error) {
	d.inner.Seek(offset, io.SeekStart)
	obj, err := readIndirect(NewParser(d.inner, WithReferences()), d.length)
	if err != nil {
		return nil, err
	}
	if !obj.IsXRef() {
		return nil, fmt.Errorf("xref stream at %d %w", offset, ErrMissing)
	}
	list, err := readXRefStream(obj)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		d.addPointer(p)
	}
	return obj.Dict, nil
}

func (d *Document) addPointer(p Pointer) {
	if _, ok := d.xref[p.Ref.Num]; ok {
		return
	}
	if p.free && p.Ref.Num == 0 {
		return
	}
	d.xref[p.Ref.Num] = p
}

// rebuild locates every "num gen obj" in the file. Later definitions of an
// object replace earlier ones, and the trailer is taken from the last
// trailer dictionary or cross-reference stream found.
func (d *Document) rebuild() error {
	var (
		buf   = d.inner.buf
		found = make(map[int]Pointer)
		owner []int
		tail  Dict
	)
	for x := 0; ; {
		i := bytes.Index(buf[x:], []byte(kwObj))
		if i < 0 {
			break
		}
		at := x + i
		x = at + len(kwObj)
		if at > 0 && !isBlank(buf[at-1]) {
			continue
		}
		start := lineStart(buf, at)
		d.inner.Seek(int64(start), io.SeekStart)
		tok := NewTokenizer(d.inner)
		num, err1 := readInt(tok)
		gen, err2 := readInt(tok)
		if d.inner.Skip(); err1 != nil || err2 != nil || d.inner.Tell() != int64(at) {
			continue
		}
		ref := Reference{Num: int(num), Gen: int(gen)}
		found[ref.Num] = Pointer{Ref: ref, Offset: int64(start)}

		d.inner.Seek(int64(start), io.SeekStart)
		obj, err := readIndirect(NewParser(d.inner, WithReferences()), d.length)
		switch {
		case err != nil:
		case obj.IsXRef():
			tail = obj.Dict
		case obj.IsObjectStream():
			owner = append(owner, ref.Num)
		}
	}
	if x := d.inner.LastIndex([]byte(kwTrailer)); x >= 0 {
		d.inner.Seek(x+int64(len(kwTrailer)), io.SeekStart)
		if val, err := NewParser(d.inner, WithReferences()).ReadObject(); err == nil {
			if dict, ok := val.(Dict); ok {
				tail = dict
			}
		}
	}
	if len(found) == 0 {
		return fmt.Errorf("no object %w", ErrMissing)
	}
	d.xref = found
	for _, num := range owner {
		stm, err := d.objectStream(num)
		if err != nil {
			continue
		}
		for i, ref := range stm.refs {
			if _, ok := d.xref[ref.Num]; !ok {
				d.xref[ref.Num] = Pointer{Ref: ref, Owner: num, Offset: int64(i)}
			}
		}
	}
	d.trailer = make(Dict)
	for k, v := range tail {
		d.trailer[k] = v
	}
	if d.trailer.Get("Root") == nil {
		for _, p := range found {
			obj, err := d.Object(p.Ref)
			if err == nil && obj.Type() == "Catalog" {
				d.trailer["Root"] = p.Ref
				break
			}
		}
	}
	if d.trailer.Get("Root") == nil {
		return fmt.Errorf("catalog %w", ErrMissing)
	}
	return nil
}

// lineStart returns the offset of the "num gen" preceding the obj keyword
// found at offset.
func lineStart(buf []byte, offset int) int {
	x := offset
	for i := 0; i < 2; i++ {
		for x > 0 && isBlank(buf[x-1]) {
			x--
		}
		for x > 0 && isDigit(buf[x-1]) {
			x--
		}
	}
	return x
}

// length resolves the /Length of a stream, -1 when it is unknown.
func (d *Document) length(v Value) int64 {
	if ref, ok := v.(Reference); ok {
		if d.resolving[ref] {
			return -1
		}
		if d.resolving == nil {
			d.resolving = make(map[Reference]bool)
		}
		d.resolving[ref] = true
		defer delete(d.resolving, ref)
		v = d.Resolve(ref)
	}
	n, ok := v.(*Number)
	if !ok {
		return -1
	}
	i, err := n.Int()
	if err != nil || i < 0 {
		return -1
	}
	return i
}
