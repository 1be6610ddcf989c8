package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid page number")

type Ranger interface {
	Pages(int64) []int
}

// a range is defined with
// : = all pages
// x: = from page X to end of document
// :x = from begin of a document to page X
// x:y = from page x to page y (negative pages count from the end)
// x,y,z = list of page
// possible to mix range and individual page
type Range struct {
	pages []Ranger
}

func (r *Range) Set(str string) (err error) {
	if str == "" {
		return nil
	}
	r.pages, err = parseRange(str)
	return err
}

func (r *Range) String() string {
	if len(r.pages) == 0 {
		return "all"
	}
	return "page"
}

// Pages returns the selected pages that exist in a document of n pages, in
// the order given and without duplicates.
func (r *Range) Pages(n int64) []int {
	if len(r.pages) == 0 {
		return all().Pages(n)
	}
	var (
		ps   []int
		seen = make(map[int]bool)
	)
	for _, p := range r.pages {
		for _, x := range p.Pages(n) {
			if x < 1 || int64(x) > n || seen[x] {
				continue
			}
			seen[x] = true
			ps = append(ps, x)
		}
	}
	return ps
}

func (r *Range) IsEmpty() bool {
	return len(r.pages) == 0
}

const (
	colon = ":"
	comma = ","
)

func parseRange(str string) ([]Ranger, error) {
	var pages []Ranger
	for _, part := range strings.Split(str, comma) {
		part = strings.TrimSpace(part)
		var (
			g   Ranger
			err error
		)
		switch strings.Count(part, colon) {
		case 0:
			g, err = makeSingle(part)
		case 1:
			from, to, _ := strings.Cut(part, colon)
			g, err = makeInterval(from, to)
		default:
			err = fmt.Errorf("syntax error: unexpected colon in %q", part)
		}
		if err != nil {
			return nil, err
		}
		pages = append(pages, g)
	}
	return pages, nil
}

type Single struct {
	page int
}

func makeSingle(str string) (Ranger, error) {
	n, err := strconv.Atoi(str)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("%q: %w", str, ErrInvalid)
	}
	return Single{page: n}, nil
}

func (s Single) Pages(n int64) []int {
	return []int{position(s.page, n)}
}

type Interval struct {
	first int
	last  int
}

func all() Ranger {
	return Interval{}
}

func makeInterval(from, to string) (Ranger, error) {
	var (
		i   Interval
		err error
	)
	if from != "" {
		if i.first, err = strconv.Atoi(from); err != nil || i.first == 0 {
			return nil, fmt.Errorf("%q: %w", from, ErrInvalid)
		}
	}
	if to != "" {
		if i.last, err = strconv.Atoi(to); err != nil || i.last == 0 {
			return nil, fmt.Errorf("%q: %w", to, ErrInvalid)
		}
	}
	if i.first > 0 && i.last > 0 && i.first > i.last {
		return nil, fmt.Errorf("invalid interval (%d - %d)", i.first, i.last)
	}
	return i, nil
}

func (i Interval) Pages(n int64) []int {
	first, last := 1, int(n)
	if i.first != 0 {
		first = position(i.first, n)
	}
	if i.last != 0 {
		last = position(i.last, n)
	}
	var ps []int
	for j := first; j <= last; j++ {
		ps = append(ps, j)
	}
	return ps
}

func position(page int, n int64) int {
	if page < 0 {
		return int(n) + page + 1
	}
	return page
}
