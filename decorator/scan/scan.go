// Package scan finds tag spans in the text of a subtree.
//
// Text in a rendered row is rarely a single node: the host splits it around
// search highlights, links and inline markup, so a tag may start in one text
// node and end in another. The scanner flattens the subtree into an ordered
// list of fragments once and walks it with a cursor.
package scan

import (
	"iter"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/decorator/grammar"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Position addresses a byte offset inside a text node.
type Position struct {
	Node   *html.Node
	Offset int
}

// Match is one tag span. End is exclusive. Fragments lists every text node
// the span touches, in document order, starting with Start.Node and ending
// with End.Node.
type Match struct {
	Start     Position
	End       Position
	Text      string
	Fragments []*html.Node
}

// SingleFragment reports whether the span lies within one text node.
func (m Match) SingleFragment() bool {
	return m.Start.Node == m.End.Node
}

type fragment struct {
	node *html.Node
	// Text inside an existing wrap boundary is never matched and stops a
	// span from growing into it.
	wrapped bool
}

type cursor struct {
	frag, off int
}

type scanner struct {
	grammar grammar.Grammar
	frags   []fragment

	// End of the last accepted match. A '#' right at this position is
	// treated as preceded by a boundary so "#a#b" yields two tags.
	lastEnd cursor
}

// Scan lazily yields the tag spans under root in document order.
func Scan(root *html.Node, g grammar.Grammar) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		s := &scanner{
			grammar: g,
			frags:   fragments(root),
			lastEnd: cursor{-1, -1},
		}
		s.run(yield)
	}
}

// Collect returns every span under root.
func Collect(root *html.Node, g grammar.Grammar) []Match {
	return slices.Collect(Scan(root, g))
}

// HasTrigger reports whether any text under root contains the trigger
// character, without building fragments.
func HasTrigger(root *html.Node) bool {
	for n := range dom.Walk(root) {
		if n.Type == html.TextNode && strings.IndexByte(n.Data, grammar.Trigger) >= 0 {
			return true
		}
	}
	return false
}

func fragments(root *html.Node) []fragment {
	var out []fragment
	var visit func(n *html.Node, wrapped bool)
	visit = func(n *html.Node, wrapped bool) {
		switch n.Type {
		case html.TextNode:
			if n.Data != "" {
				out = append(out, fragment{node: n, wrapped: wrapped})
			}
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			wrapped = wrapped || dom.IsWrapBoundary(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c, wrapped)
		}
	}
	visit(root, dom.InWrapBoundary(nil, root))
	return out
}

func (s *scanner) text(i int) string {
	return s.frags[i].node.Data
}

func (s *scanner) run(yield func(Match) bool) {
	at := cursor{0, 0}
	for at.frag < len(s.frags) {
		if s.frags[at.frag].wrapped {
			at = cursor{at.frag + 1, 0}
			continue
		}
		text := s.text(at.frag)
		j := strings.IndexByte(text[at.off:], grammar.Trigger)
		if j < 0 {
			at = cursor{at.frag + 1, 0}
			continue
		}
		pos := cursor{at.frag, at.off + j}
		m, end, ok := s.match(pos)
		if !ok {
			// Resume right after this '#', a later one may still start
			// a tag.
			at = cursor{pos.frag, pos.off + 1}
			continue
		}
		if !yield(m) {
			return
		}
		s.lastEnd = end
		at = end
	}
}

// match tries to read a tag starting at the '#' at pos.
func (s *scanner) match(pos cursor) (Match, cursor, bool) {
	if !s.boundaryBefore(pos) {
		return Match{}, cursor{}, false
	}

	cur := cursor{pos.frag, pos.off + 1}
	consumed, alnum := false, false
	for {
		text := s.text(cur.frag)
		if cur.off >= len(text) {
			// Cross into the next fragment only when it continues the tag.
			next := cur.frag + 1
			if next >= len(s.frags) || s.frags[next].wrapped {
				break
			}
			r, _ := utf8.DecodeRuneInString(s.text(next))
			if !s.grammar.IsTagChar(r) {
				break
			}
			cur = cursor{next, 0}
			continue
		}
		r, size := utf8.DecodeRuneInString(text[cur.off:])
		if !s.grammar.IsTagChar(r) {
			break
		}
		alnum = alnum || s.grammar.IsAlnum(r)
		consumed = true
		cur.off += size
	}
	if !consumed || !alnum {
		return Match{}, cursor{}, false
	}
	if r, ok := s.runeAt(cur); !grammar.IsBoundary(r, ok) {
		return Match{}, cursor{}, false
	}
	return s.build(pos, cur), cur, true
}

// boundaryBefore checks the character preceding the '#' at pos.
func (s *scanner) boundaryBefore(pos cursor) bool {
	if s.adjacentToLastMatch(pos) {
		return true
	}
	if pos.off > 0 {
		r, _ := utf8.DecodeLastRuneInString(s.text(pos.frag)[:pos.off])
		return grammar.IsBoundary(r, true)
	}
	prev := pos.frag - 1
	if prev < 0 {
		return true
	}
	if s.frags[prev].wrapped {
		// Directly after an existing boundary, which always ends a tag.
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s.text(prev))
	return grammar.IsBoundary(r, true)
}

func (s *scanner) adjacentToLastMatch(pos cursor) bool {
	end := s.lastEnd
	if end.frag < 0 {
		return false
	}
	if end == pos {
		return true
	}
	return pos.off == 0 && end.frag == pos.frag-1 && end.off == len(s.text(end.frag))
}

// runeAt returns the character at c, looking into the next fragment when c
// is at the end of its own.
func (s *scanner) runeAt(c cursor) (rune, bool) {
	if text := s.text(c.frag); c.off < len(text) {
		r, _ := utf8.DecodeRuneInString(text[c.off:])
		return r, true
	}
	if next := c.frag + 1; next < len(s.frags) {
		r, _ := utf8.DecodeRuneInString(s.text(next))
		return r, true
	}
	return 0, false
}

func (s *scanner) build(start, end cursor) Match {
	m := Match{
		Start: Position{Node: s.frags[start.frag].node, Offset: start.off},
		End:   Position{Node: s.frags[end.frag].node, Offset: end.off},
	}
	var sb strings.Builder
	for i := start.frag; i <= end.frag; i++ {
		text := s.text(i)
		from, to := 0, len(text)
		if i == start.frag {
			from = start.off
		}
		if i == end.frag {
			to = end.off
		}
		sb.WriteString(text[from:to])
		m.Fragments = append(m.Fragments, s.frags[i].node)
	}
	m.Text = sb.String()
	return m
}
