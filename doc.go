package pdfops

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// maxIndirection bounds the number of references followed by Resolve.
const maxIndirection = 32

type Signature struct {
	Who      string
	When     time.Time
	Reason   string
	Location string
}

type FileInfo struct {
	Title    string
	Author   string
	Subject  string
	Keywords []string
	Creator  string
	Producer string
	Created  time.Time
	Modified time.Time
	Trapped  bool

	Fields map[string]Value
}

type Outline struct {
	Title string
	Sub   []Outline
}

// Document gives access to the objects of a PDF file. A Document moves a
// single cursor over the file and is not safe for concurrent use.
type Document struct {
	inner   *Reader
	xref    map[int]Pointer
	trailer Dict
	streams map[int]*objectStream

	version    string
	linearized bool

	catalog Reference
	info    Reference
	encrypt Reference

	fileid  []byte
	decrypt []byte

	resolving map[Reference]bool
}

func Open(file string) (*Document, error) {
	return readFile(file)
}

func (d *Document) Close() error {
	d.streams = nil
	return d.inner.Close()
}

func (d *Document) Trailer() Dict {
	return d.trailer
}

func (d *Document) Linearized() bool {
	return d.linearized
}

func (d *Document) Encrypted() bool {
	return d.trailer.Has("Encrypt")
}

// Object returns the object numbered ref.Num. The generation is not
// checked.
func (d *Document) Object(ref Reference) (Object, error) {
	ptr, ok := d.xref[ref.Num]
	if !ok || ptr.free {
		return Object{}, fmt.Errorf("object %s %w", ref, ErrMissing)
	}
	if ptr.isEmbed() {
		stm, err := d.objectStream(ptr.Owner)
		if err != nil {
			return Object{}, fmt.Errorf("object %s: %w", ref, err)
		}
		return stm.object(ptr.Offset)
	}
	if ptr.Offset < 0 || ptr.Offset >= d.inner.Size() {
		return Object{}, fmt.Errorf("object %s: offset %d out of range: %w", ref, ptr.Offset, ErrSyntax)
	}
	d.inner.Seek(ptr.Offset, io.SeekStart)
	obj, err := readIndirect(NewParser(d.inner, WithReferences()), d.length)
	if err != nil {
		return obj, fmt.Errorf("object %s: %w", ref, err)
	}
	if len(d.decrypt) > 0 && obj.Ref != d.encrypt && !obj.IsXRef() {
		key := objectKey(d.decrypt, obj.Ref)
		if obj.Dict != nil {
			obj.Dict = decryptValue(key, obj.Dict).(Dict)
		}
		if obj.Data != nil {
			obj.Data = decryptValue(key, obj.Data)
		}
		obj.Content = rc4Bytes(key, obj.Content)
	}
	return obj, nil
}

func (d *Document) objectStream(num int) (*objectStream, error) {
	if stm, ok := d.streams[num]; ok {
		return stm, nil
	}
	obj, err := d.Object(Reference{Num: num})
	if err != nil {
		return nil, err
	}
	stm, err := readObjectStream(obj)
	if err != nil {
		return nil, err
	}
	d.streams[num] = stm
	return stm, nil
}

// Resolve follows references until it reaches a direct value. A reference
// to a missing object resolves to null.
func (d *Document) Resolve(v Value) Value {
	for i := 0; i < maxIndirection; i++ {
		ref, ok := v.(Reference)
		if !ok {
			return v
		}
		obj, err := d.Object(ref)
		if err != nil {
			return Null{}
		}
		v = obj.Value()
	}
	return Null{}
}

// Walk calls fn for every object of the document, including the objects
// stored in object streams, until fn returns false. Objects that cannot be
// read are skipped.
func (d *Document) Walk(fn func(Object) bool) error {
	nums := make([]int, 0, len(d.xref))
	for n, p := range d.xref {
		if !p.free {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	for _, n := range nums {
		obj, err := d.Object(d.xref[n].Ref)
		if err != nil {
			continue
		}
		if !fn(obj) {
			break
		}
	}
	return nil
}

func (d *Document) GetVersion() string {
	if v := d.getCatalog().GetName("Version"); v != "" {
		return v
	}
	return d.version
}

func (d *Document) GetLang() string {
	return d.getCatalog().GetString("Lang")
}

func (d *Document) GetDocumentInfo() FileInfo {
	var (
		fi   FileInfo
		dict Dict
	)
	if !d.info.isZero() {
		dict, _ = d.Resolve(d.info).(Dict)
	}
	if dict == nil {
		return fi
	}
	fi.Title = dict.GetString("Title")
	fi.Author = dict.GetString("Author")
	fi.Subject = dict.GetString("Subject")
	fi.Creator = dict.GetString("Creator")
	fi.Producer = dict.GetString("Producer")
	fi.Created, _ = parseTime(dict.GetString("CreationDate"))
	fi.Modified, _ = parseTime(dict.GetString("ModDate"))
	for _, k := range strings.FieldsFunc(dict.GetString("Keywords"), isKeywordSep) {
		fi.Keywords = append(fi.Keywords, strings.TrimSpace(k))
	}
	switch v := dict.Get("Trapped").(type) {
	case Name:
		fi.Trapped = v == "True"
	case Bool:
		fi.Trapped = bool(v)
	}

	fi.Fields = make(map[string]Value)
	for k, v := range dict {
		switch k {
		case "Title", "Author", "Subject", "Keywords", "Creator", "Producer", "CreationDate", "ModDate", "Trapped":
		default:
			fi.Fields[string(k)] = v
		}
	}
	return fi
}

func isKeywordSep(r rune) bool {
	return r == ',' || r == ';'
}

func (d *Document) GetOutlines() []Outline {
	root, _ := d.Resolve(d.getCatalog().Get("Outlines")).(Dict)
	return d.getOutlines(root, make(map[Reference]bool))
}

func (d *Document) getOutlines(parent Dict, seen map[Reference]bool) []Outline {
	var (
		lines []Outline
		next  = parent.Get("First")
	)
	for next != nil {
		ref, ok := next.(Reference)
		if !ok || seen[ref] {
			break
		}
		seen[ref] = true
		item, ok := d.Resolve(ref).(Dict)
		if !ok {
			break
		}
		line := Outline{
			Title: item.GetString("Title"),
		}
		if item.Has("First") {
			line.Sub = d.getOutlines(item, seen)
		}
		lines = append(lines, line)
		next = item.Get("Next")
	}
	return lines
}

// GetMetadata returns the XMP packet of the document.
func (d *Document) GetMetadata() ([]byte, error) {
	ref, ok := d.getCatalog().GetReference("Metadata")
	if !ok {
		return nil, fmt.Errorf("metadata %w", ErrMissing)
	}
	obj, err := d.Object(ref)
	if err != nil {
		return nil, err
	}
	return obj.Body()
}

func (d *Document) GetSignatures() []Signature {
	var list []Signature
	d.Walk(func(o Object) bool {
		if o.IsSignature() {
			sig := Signature{
				Who:      o.GetString("Name"),
				Reason:   o.GetString("Reason"),
				Location: o.GetString("Location"),
			}
			sig.When, _ = parseTime(o.GetString("M"))
			list = append(list, sig)
		}
		return true
	})
	return list
}

func (d *Document) GetCount() int64 {
	n, _ := d.Resolve(d.getPageRoot().Get("Count")).(*Number)
	if n == nil {
		return 0
	}
	c, _ := n.Int()
	return c
}

// GetPage returns the content of page n (1-based). Content made of several
// streams is concatenated, each stream separated by a newline.
func (d *Document) GetPage(n int) ([]byte, error) {
	page, err := d.getPageObject(n)
	if err != nil {
		return nil, err
	}
	var list []Value
	switch c := d.Resolve(page.Get("Contents")).(type) {
	case Array:
		list = c
	case Null:
	default:
		list = append(list, page.Get("Contents"))
	}
	var body []byte
	for i, v := range list {
		ref, ok := v.(Reference)
		if !ok {
			continue
		}
		obj, err := d.Object(ref)
		if err != nil {
			return nil, err
		}
		buf, err := obj.Body()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		if i > 0 {
			body = append(body, nl)
		}
		body = append(body, buf...)
	}
	return body, nil
}

func (d *Document) GetPageCommands(n int) ([]Command, error) {
	body, err := d.GetPage(n)
	if err != nil {
		return nil, err
	}
	return Parse(body, nil)
}

// StreamCommands parses the body of a stream. Streams not holding content
// operators give no command.
func (d *Document) StreamCommands(obj Object) ([]Command, error) {
	if !obj.IsStream() {
		return nil, fmt.Errorf("object %s is not a stream", obj.Ref)
	}
	if !Eligible(obj) {
		return nil, nil
	}
	body, err := obj.Body()
	if err != nil {
		return nil, err
	}
	return Parse(body, obj)
}

func (d *Document) getPageObject(n int) (Dict, error) {
	if c := d.GetCount(); n < 1 || int64(n) > c {
		return nil, fmt.Errorf("page %d not found in document (%d pages)", n, c)
	}
	root := d.getPageRoot()
	if root.IsEmpty() {
		return nil, fmt.Errorf("page tree %w", ErrMissing)
	}
	return d.findPage(root, n, make(map[Reference]bool))
}

func (d *Document) findPage(node Dict, n int, seen map[Reference]bool) (Dict, error) {
	for _, kid := range node.GetArray("Kids") {
		if ref, ok := kid.(Reference); ok {
			if seen[ref] {
				continue
			}
			seen[ref] = true
		}
		dict, ok := d.Resolve(kid).(Dict)
		if !ok {
			continue
		}
		if dict.Type() == "Pages" || dict.Has("Kids") {
			var count int
			if c, ok := d.Resolve(dict.Get("Count")).(*Number); ok {
				i, _ := c.Int()
				count = int(i)
			}
			if n <= count {
				return d.findPage(dict, n, seen)
			}
			n -= count
			continue
		}
		if n == 1 {
			return dict, nil
		}
		n--
	}
	return nil, fmt.Errorf("page %w", ErrMissing)
}

func (d *Document) getPageRoot() Dict {
	root, _ := d.Resolve(d.getCatalog().Get("Pages")).(Dict)
	return root
}

func (d *Document) getCatalog() Dict {
	if d.catalog.isZero() {
		return nil
	}
	cat, _ := d.Resolve(d.catalog).(Dict)
	return cat
}

func (d *Document) setupKey() error {
	var dict Dict
	switch v := d.trailer.Get("Encrypt").(type) {
	case nil:
		return nil
	case Reference:
		d.encrypt = v
		dict, _ = d.Resolve(v).(Dict)
	case Dict:
		dict = v
	}
	if dict == nil {
		return fmt.Errorf("encryption dictionary %w", ErrMissing)
	}
	key, err := fileKey(dict, d.fileid)
	if err != nil {
		return err
	}
	d.decrypt = key
	return nil
}
