package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/midbel/pdfops"
)

const timePattern = "2006-01-02 15:04:05"

type stats struct {
	objects   int
	streams   int
	eligible  int
	commands  int
	failed    int
	operators map[string]int
}

func main() {
	ops := flag.Bool("o", false, "print operator histogram")
	flag.Parse()
	doc, err := pdfops.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer doc.Close()

	info := doc.GetDocumentInfo()
	printLine("version", "PDF-"+doc.GetVersion())
	printLine("title", info.Title)
	printLine("language", doc.GetLang())
	printLine("author", info.Author)
	printLine("subject", info.Subject)
	printLine("creator", info.Creator)
	printLine("producer", info.Producer)
	if !info.Created.IsZero() {
		printLine("created", info.Created.Format(timePattern))
	}
	if !info.Modified.IsZero() {
		printLine("modified", info.Modified.Format(timePattern))
	}
	if len(info.Keywords) > 0 {
		printLine("keywords", strings.Join(info.Keywords, ", "))
	}
	for _, sig := range doc.GetSignatures() {
		if sig.When.IsZero() {
			printLine("signed by", sig.Who)
		} else {
			printLine("signed by", fmt.Sprintf("%s (%s)", sig.Who, sig.When.Format(timePattern)))
		}
	}
	printLine("linearized", strconv.FormatBool(doc.Linearized()))
	printLine("encrypted", strconv.FormatBool(doc.Encrypted()))
	printLine("pages", strconv.FormatInt(doc.GetCount(), 10))
	printLine("outlines", strconv.Itoa(len(doc.GetOutlines())))

	st := collect(doc)
	printLine("objects", strconv.Itoa(st.objects))
	printLine("streams", strconv.Itoa(st.streams))
	printLine("eligible", strconv.Itoa(st.eligible))
	printLine("commands", strconv.Itoa(st.commands))
	if st.failed > 0 {
		printLine("errors", strconv.Itoa(st.failed))
	}
	if *ops {
		printOperators(st.operators)
	}
}

func collect(doc *pdfops.Document) stats {
	st := stats{
		operators: make(map[string]int),
	}
	doc.Walk(func(o pdfops.Object) bool {
		st.objects++
		if !o.IsStream() {
			return true
		}
		st.streams++
		if !pdfops.Eligible(o) {
			return true
		}
		st.eligible++
		cmds, err := doc.StreamCommands(o)
		if err != nil {
			st.failed++
		}
		st.commands += len(cmds)
		for _, c := range cmds {
			st.operators[c.Operator()]++
		}
		return true
	})
	return st
}

func printOperators(ops map[string]int) {
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if ops[keys[i]] == ops[keys[j]] {
			return keys[i] < keys[j]
		}
		return ops[keys[i]] > ops[keys[j]]
	})
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(none)"
		}
		fmt.Printf("%-12s: %d", name, ops[k])
		fmt.Println()
	}
}

func printLine(key, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%-12s: %s", strings.ToUpper(key[:1])+key[1:], value)
	fmt.Println()
}
