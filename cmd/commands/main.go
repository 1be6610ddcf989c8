package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/midbel/hexdump"
	"github.com/midbel/pdfops"
)

type printer struct {
	dump    bool
	text    bool
	verbose bool
	failed  bool
}

func main() {
	var (
		rg Range
		pr printer
		ev = flag.Bool("a", false, "parse every eligible stream of the document")
	)
	flag.Var(&rg, "p", "page range")
	flag.BoolVar(&pr.dump, "x", false, "hexdump inline images")
	flag.BoolVar(&pr.text, "t", false, "print text instead of commands")
	flag.BoolVar(&pr.verbose, "v", false, "verbose")
	flag.Parse()

	doc, err := pdfops.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer doc.Close()

	if *ev {
		printStreams(doc, &pr)
	} else {
		printPages(doc, rg, &pr)
	}
	if pr.failed {
		os.Exit(1)
	}
}

func printPages(doc *pdfops.Document, rg Range, pr *printer) {
	for _, p := range rg.Pages(doc.GetCount()) {
		cmds, err := doc.GetPageCommands(p)
		pr.debug("page %d: %d commands", p, len(cmds))
		pr.print(fmt.Sprintf("page %d", p), cmds, err)
	}
}

func printStreams(doc *pdfops.Document, pr *printer) {
	doc.Walk(func(o pdfops.Object) bool {
		if !o.IsStream() {
			return true
		}
		if !pdfops.Eligible(o) {
			pr.debug("object %s: skipped (%s %s)", o.Ref, o.Type(), o.Subtype())
			return true
		}
		cmds, err := doc.StreamCommands(o)
		pr.debug("object %s: %d commands", o.Ref, len(cmds))
		pr.print(fmt.Sprintf("object %s", o.Ref), cmds, err)
		return true
	})
}

func (pr *printer) print(where string, cmds []pdfops.Command, err error) {
	if pr.text {
		if str := pdfops.ExtractText(cmds); str != "" {
			fmt.Println(str)
		}
	} else {
		for _, c := range cmds {
			fmt.Println(c)
			if !pr.dump {
				continue
			}
			for _, v := range c.Operands() {
				if img, ok := v.(*pdfops.InlineImage); ok {
					fmt.Println(hexdump.Dump(img.Data))
				}
			}
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s", where, err)
		fmt.Fprintln(os.Stderr)
		pr.failed = true
	}
}

func (pr *printer) debug(pattern string, args ...interface{}) {
	if !pr.verbose {
		return
	}
	fmt.Fprintf(os.Stderr, pattern, args...)
	fmt.Fprintln(os.Stderr)
}
