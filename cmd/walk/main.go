package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/midbel/hexdump"
	"github.com/midbel/pdfops"
)

type walker struct {
	doc   *pdfops.Document
	raw   bool
	depth int
	seen  map[pdfops.Reference]bool
}

func main() {
	var (
		all   = flag.Bool("a", false, "list every object instead of the tree")
		raw   = flag.Bool("r", false, "dump the decoded body of streams")
		depth = flag.Int("d", 0, "maximum depth of the tree")
	)
	flag.Parse()
	doc, err := pdfops.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer doc.Close()

	w := walker{
		doc:   doc,
		raw:   *raw,
		depth: *depth,
		seen:  make(map[pdfops.Reference]bool),
	}
	if *all {
		doc.Walk(func(o pdfops.Object) bool {
			w.printObject(o)
			return true
		})
		return
	}
	w.walk("trailer", doc.Trailer(), 0)
}

func (w *walker) walk(key string, v pdfops.Value, level int) {
	if w.depth > 0 && level > w.depth {
		return
	}
	indent := strings.Repeat("  ", level)
	switch v := v.(type) {
	case pdfops.Reference:
		if w.seen[v] {
			fmt.Printf("%s%s: %s (seen)", indent, key, v)
			fmt.Println()
			return
		}
		w.seen[v] = true
		obj, err := w.doc.Object(v)
		if err != nil {
			fmt.Printf("%s%s: %s (%s)", indent, key, v, err)
			fmt.Println()
			return
		}
		fmt.Printf("%s%s: %s", indent, key, v)
		if obj.IsStream() {
			fmt.Printf(" stream(%d bytes)", len(obj.Content))
		}
		fmt.Println()
		if obj.Dict != nil {
			w.walkDict(obj.Dict, level+1)
		} else {
			w.walk("value", obj.Data, level+1)
		}
		if w.raw && obj.IsStream() {
			w.dump(obj)
		}
	case pdfops.Dict:
		fmt.Printf("%s%s: <<", indent, key)
		fmt.Println()
		w.walkDict(v, level+1)
	case pdfops.Array:
		if !hasReference(v) {
			fmt.Printf("%s%s: %s", indent, key, v)
			fmt.Println()
			return
		}
		fmt.Printf("%s%s: [", indent, key)
		fmt.Println()
		for i := range v {
			w.walk(fmt.Sprintf("%d", i), v[i], level+1)
		}
	default:
		fmt.Printf("%s%s: %s", indent, key, v)
		fmt.Println()
	}
}

func (w *walker) walkDict(d pdfops.Dict, level int) {
	for _, k := range d.Keys() {
		if k == "Parent" {
			continue
		}
		w.walk(string(k), d[k], level)
	}
}

func (w *walker) printObject(o pdfops.Object) {
	fmt.Printf("%s %s", o.Ref, o.Value())
	fmt.Println()
	if w.raw && o.IsStream() {
		w.dump(o)
	}
}

func (w *walker) dump(o pdfops.Object) {
	body, err := o.Body()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s", o.Ref, err)
		fmt.Fprintln(os.Stderr)
		return
	}
	fmt.Println(hexdump.Dump(body))
}

func hasReference(arr pdfops.Array) bool {
	for _, v := range arr {
		switch v.(type) {
		case pdfops.Reference, pdfops.Dict, pdfops.Array:
			return true
		}
	}
	return false
}
