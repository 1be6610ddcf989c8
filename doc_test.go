package pdfops

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"fmt"
	"image"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedded struct {
	owner int
	index int
}

// builder writes a PDF file in memory, keeping track of object offsets.
type builder struct {
	buf      bytes.Buffer
	offsets  map[int]int
	embedded map[int]embedded
}

func newBuilder() *builder {
	b := builder{
		offsets:  make(map[int]int),
		embedded: make(map[int]embedded),
	}
	b.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	return &b
}

func (b *builder) object(num int, body string) {
	b.offsets[num] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (b *builder) stream(num int, dict string, data []byte) {
	b.streamWithLength(num, dict, fmt.Sprintf("%d", len(data)), data)
}

func (b *builder) streamWithLength(num int, dict, length string, data []byte) {
	b.offsets[num] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s /Length %s >>\nstream\n", num, dict, length)
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
}

func (b *builder) objectStream(num int, nums []int, bodies []string) {
	var head, objs strings.Builder
	for i := range nums {
		fmt.Fprintf(&head, "%d %d ", nums[i], objs.Len())
		objs.WriteString(bodies[i])
		objs.WriteString("\n")
		b.embedded[nums[i]] = embedded{owner: num, index: i}
	}
	dict := fmt.Sprintf("/Type /ObjStm /N %d /First %d", len(nums), head.Len())
	b.stream(num, dict, []byte(head.String()+objs.String()))
}

func (b *builder) size() int {
	size := 0
	for n := range b.offsets {
		if n >= size {
			size = n + 1
		}
	}
	for n := range b.embedded {
		if n >= size {
			size = n + 1
		}
	}
	return size
}

func (b *builder) finish(trailer string) []byte {
	var (
		offset = b.buf.Len()
		size   = b.size()
	)
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", size)
	b.buf.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		if off, ok := b.offsets[i]; ok {
			fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
		} else {
			b.buf.WriteString("0000000000 00000 f \n")
		}
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", size, trailer, offset)
	return b.buf.Bytes()
}

func (b *builder) finishStream(num int, trailer string) []byte {
	var (
		offset = b.buf.Len()
		size   = num + 1
		data   bytes.Buffer
	)
	if s := b.size(); s > size {
		size = s
	}
	b.offsets[num] = offset
	for i := 0; i < size; i++ {
		entry := make([]byte, 7)
		if off, ok := b.offsets[i]; ok {
			entry[0] = 1
			binary.BigEndian.PutUint32(entry[1:], uint32(off))
		} else if e, ok := b.embedded[i]; ok {
			entry[0] = 2
			binary.BigEndian.PutUint32(entry[1:], uint32(e.owner))
			binary.BigEndian.PutUint16(entry[5:], uint16(e.index))
		}
		data.Write(entry)
	}
	dict := fmt.Sprintf("/Type /XRef /Size %d /W [1 4 2] %s", size, trailer)
	b.stream(num, dict, data.Bytes())
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", offset)
	return b.buf.Bytes()
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	z := zlib.NewWriter(&buf)
	_, err := z.Write(data)
	require.NoError(t, err)
	require.NoError(t, z.Close())
	return buf.Bytes()
}

func sampleDocument(t *testing.T) []byte {
	b := newBuilder()
	b.object(1, "<< /Type /Catalog /Pages 2 0 R /Outlines 7 0 R /Metadata 15 0 R /Lang (en-US) >>")
	b.object(2, "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>")
	b.object(3, "<< /Type /Page /Parent 2 0 R /Contents 5 0 R >>")
	b.object(4, "<< /Type /Page /Parent 2 0 R /Contents [6 0 R 8 0 R] >>")
	b.stream(5, "/Filter /FlateDecode", deflate(t, []byte("BT /F1 12 Tf (Hello) Tj ET")))
	b.stream(6, "", []byte("q 1 0 0 1 0 0 cm"))
	b.object(7, "<< /Type /Outlines /First 12 0 R /Last 13 0 R >>")
	b.streamWithLength(8, "", "14 0 R", []byte("Q"))
	b.object(9, "<< /Title (Test) /Author <FEFF0041> /CreationDate (D:20240102030405Z) /Keywords (a, b) /Trapped /True /Custom 42 >>")
	b.stream(10, "/Type /XObject /Subtype /Image /Width 2 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8", []byte{0x00, 0xff})
	b.stream(11, "/Length1 4", []byte("font"))
	b.object(12, "<< /Title (One) /Parent 7 0 R /Next 13 0 R >>")
	b.object(13, "<< /Title (Two) /Parent 7 0 R /Prev 12 0 R >>")
	b.object(14, "1")
	b.stream(15, "/Type /Metadata /Subtype /XML", []byte("<x:xmpmeta/>"))
	b.object(16, "<< /Type /Sig /Name (Jane) /M (D:20240102030405Z) /Reason (approved) >>")
	return b.finish("/Root 1 0 R /Info 9 0 R")
}

func TestDocumentPages(t *testing.T) {
	doc, err := NewDocument(sampleDocument(t))
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, int64(2), doc.GetCount())
	assert.Equal(t, "1.7", doc.GetVersion())
	assert.Equal(t, "en-US", doc.GetLang())
	assert.False(t, doc.Linearized())
	assert.False(t, doc.Encrypted())

	body, err := doc.GetPage(1)
	require.NoError(t, err)
	assert.Equal(t, "BT /F1 12 Tf (Hello) Tj ET", string(body))

	body, err = doc.GetPage(2)
	require.NoError(t, err)
	assert.Equal(t, "q 1 0 0 1 0 0 cm\nQ", string(body))

	cmds, err := doc.GetPageCommands(2)
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, "Q", cmds[2].Operator())

	cmds, err = doc.GetPageCommands(1)
	require.NoError(t, err)
	assert.Equal(t, "Hello", ExtractText(cmds))

	_, err = doc.GetPage(3)
	assert.Error(t, err)
	_, err = doc.GetPage(0)
	assert.Error(t, err)
}

func TestDocumentInfo(t *testing.T) {
	doc, err := NewDocument(sampleDocument(t))
	require.NoError(t, err)

	info := doc.GetDocumentInfo()
	assert.Equal(t, "Test", info.Title)
	assert.Equal(t, "A", info.Author)
	assert.Equal(t, []string{"a", "b"}, info.Keywords)
	assert.True(t, info.Trapped)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), info.Created.UTC())
	assert.True(t, info.Modified.IsZero())
	assert.Contains(t, info.Fields, "Custom")
	assert.NotContains(t, info.Fields, "Title")

	outlines := doc.GetOutlines()
	require.Len(t, outlines, 2)
	assert.Equal(t, "One", outlines[0].Title)
	assert.Equal(t, "Two", outlines[1].Title)

	sigs := doc.GetSignatures()
	require.Len(t, sigs, 1)
	assert.Equal(t, "Jane", sigs[0].Who)
	assert.Equal(t, "approved", sigs[0].Reason)
	assert.Equal(t, 2024, sigs[0].When.Year())

	meta, err := doc.GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, "<x:xmpmeta/>", string(meta))
}

func TestDocumentWalk(t *testing.T) {
	doc, err := NewDocument(sampleDocument(t))
	require.NoError(t, err)

	var (
		refs     []int
		streams  int
		eligible int
		commands int
	)
	err = doc.Walk(func(o Object) bool {
		refs = append(refs, o.Ref.Num)
		if !o.IsStream() {
			return true
		}
		streams++
		if Eligible(o) {
			eligible++
		}
		cmds, err := doc.StreamCommands(o)
		require.NoError(t, err)
		commands += len(cmds)
		return true
	})
	require.NoError(t, err)
	assert.True(t, sort.IntsAreSorted(refs))
	assert.Len(t, refs, 16)
	assert.Equal(t, 6, streams)
	assert.Equal(t, 3, eligible)
	assert.Equal(t, 7, commands)

	var count int
	doc.Walk(func(o Object) bool {
		count++
		return count < 3
	})
	assert.Equal(t, 3, count)
}

func TestDocumentResolve(t *testing.T) {
	doc, err := NewDocument(sampleDocument(t))
	require.NoError(t, err)

	pages, ok := doc.Resolve(Reference{Num: 2}).(Dict)
	require.True(t, ok)
	assert.Equal(t, int64(2), pages.GetInt("Count"))
	assert.Equal(t, Null{}, doc.Resolve(Reference{Num: 99}))
	assert.Equal(t, Name("x"), doc.Resolve(Name("x")))

	_, err = doc.Object(Reference{Num: 99})
	assert.ErrorIs(t, err, ErrMissing)

	obj, err := doc.Object(Reference{Num: 8})
	require.NoError(t, err)
	assert.Equal(t, []byte("Q"), obj.Content)
}

func TestDocumentImage(t *testing.T) {
	doc, err := NewDocument(sampleDocument(t))
	require.NoError(t, err)

	obj, err := doc.Object(Reference{Num: 10})
	require.NoError(t, err)
	assert.True(t, obj.IsImage())
	assert.False(t, Eligible(obj))

	cmds, err := doc.StreamCommands(obj)
	require.NoError(t, err)
	assert.Empty(t, cmds)

	img, err := obj.Image()
	require.NoError(t, err)
	gray, ok := img.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0xff}, gray.Pix)

	obj, err = doc.Object(Reference{Num: 6})
	require.NoError(t, err)
	_, err = obj.Image()
	assert.Error(t, err)
}

func TestDocumentRebuild(t *testing.T) {
	buf := sampleDocument(t)
	x := bytes.LastIndex(buf, []byte("startxref"))
	require.True(t, x > 0)
	broken := append([]byte{}, buf[:x]...)
	broken = append(broken, "startxref\n99999999\n%%EOF\n"...)

	doc, err := NewDocument(broken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.GetCount())

	body, err := doc.GetPage(1)
	require.NoError(t, err)
	assert.Equal(t, "BT /F1 12 Tf (Hello) Tj ET", string(body))
	assert.Equal(t, "Test", doc.GetDocumentInfo().Title)
}

func TestDocumentXRefStream(t *testing.T) {
	b := newBuilder()
	b.object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.objectStream(4, []int{2, 3}, []string{
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /Contents 5 0 R >>",
	})
	b.stream(5, "", []byte("0 0 m 10 10 l S"))
	buf := b.finishStream(6, "/Root 1 0 R")

	doc, err := NewDocument(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.GetCount())

	cmds, err := doc.GetPageCommands(1)
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, []string{"m", "l", "S"}, []string{cmds[0].Operator(), cmds[1].Operator(), cmds[2].Operator()})

	obj, err := doc.Object(Reference{Num: 3})
	require.NoError(t, err)
	assert.True(t, obj.IsPage())
	assert.Equal(t, Reference{Num: 3}, obj.Ref)

	var types []string
	doc.Walk(func(o Object) bool {
		types = append(types, o.Type())
		return true
	})
	assert.Equal(t, []string{"Catalog", "Pages", "Page", "ObjStm", "", "XRef"}, types)
}

func TestDocumentEncrypted(t *testing.T) {
	var (
		fileid = []byte("0123456789abcdef")
		owner  = bytes.Repeat([]byte{0x42}, 32)
		perm   = int32(-4)
	)
	sum := md5.New()
	sum.Write(padding)
	sum.Write(owner)
	binary.Write(sum, binary.LittleEndian, perm)
	sum.Write(fileid)
	key := sum.Sum(nil)[:5]

	user := make([]byte, len(padding))
	c, err := rc4.NewCipher(key)
	require.NoError(t, err)
	c.XORKeyStream(user, padding)

	encrypt := func(num int, data []byte) []byte {
		tmp := append(append([]byte{}, key...), byte(num), 0, 0, 0, 0)
		k := md5.Sum(tmp)
		c, err := rc4.NewCipher(k[:10])
		require.NoError(t, err)
		out := make([]byte, len(data))
		c.XORKeyStream(out, data)
		return out
	}

	b := newBuilder()
	b.object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.object(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.object(3, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>")
	b.stream(4, "", encrypt(4, []byte("BT (secret) Tj ET")))
	b.object(5, fmt.Sprintf("<< /Title <%X> >>", encrypt(5, []byte("Hidden"))))
	b.object(6, fmt.Sprintf("<< /Filter /Standard /V 1 /R 2 /O <%X> /U <%X> /P %d >>", owner, user, perm))
	buf := b.finish(fmt.Sprintf("/Root 1 0 R /Info 5 0 R /Encrypt 6 0 R /ID [<%X> <%X>]", fileid, fileid))

	doc, err := NewDocument(buf)
	require.NoError(t, err)
	assert.True(t, doc.Encrypted())
	assert.Equal(t, "Hidden", doc.GetDocumentInfo().Title)

	cmds, err := doc.GetPageCommands(1)
	require.NoError(t, err)
	assert.Equal(t, "secret", ExtractText(cmds))
}

func TestDocumentInvalid(t *testing.T) {
	_, err := NewDocument([]byte("not a pdf"))
	assert.ErrorIs(t, err, ErrMissing)

	_, err = NewDocument([]byte("%PDF-1.4\nnothing here\n"))
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	data := []struct {
		input string
		want  time.Time
	}{
		{input: "D:20240102030405Z", want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{input: "D:20240102030405+02'00'", want: time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC)},
		{input: "D:20240102030405-05'30", want: time.Date(2024, 1, 2, 8, 34, 5, 0, time.UTC)},
		{input: "D:20240102", want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{input: "2024", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, d := range data {
		got, err := parseTime(d.input)
		require.NoError(t, err, d.input)
		assert.True(t, d.want.Equal(got), "%s: got %s", d.input, got)
	}
}
