// Package wrap inserts and removes the span boundaries around tag matches.
package wrap

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/decorator/scan"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrStaleMatch is returned when the text a match points into changed after
// the scan.
var ErrStaleMatch = errors.New("stale match")

// NewBoundary returns a detached boundary span carrying the fixed marker
// class and styleClass.
func NewBoundary(styleClass string) *html.Node {
	b := dom.NewElement(atom.Span, dom.WrapperClass)
	dom.AddClass(b, styleClass)
	return b
}

// HasBoundaries reports whether root contains any current or legacy boundary.
func HasBoundaries(root *html.Node) bool {
	for n := range dom.Walk(root) {
		if dom.IsWrapBoundary(n) {
			return true
		}
	}
	return false
}

// UnwrapAll removes every boundary under root (root excluded), putting the
// boundary's children in its place and merging the text nodes around it. It
// returns how many boundaries were removed; failures on nodes the host pulled
// away are collected and the rest still proceed.
func UnwrapAll(root *html.Node) (int, error) {
	boundaries := dom.FindAll(root, func(n *html.Node) bool {
		return n != root && dom.IsWrapBoundary(n)
	})
	var (
		errs    []error
		removed int
		parents []*html.Node
	)
	// Innermost first so a nested legacy boundary is lifted before its
	// parent goes.
	for _, b := range slices.Backward(boundaries) {
		parent := b.Parent
		if err := dom.Safely("unwrap", func() { dom.ReplaceWithChildren(b) }); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
		if !slices.Contains(parents, parent) {
			parents = append(parents, parent)
		}
	}
	for _, p := range parents {
		if err := dom.Safely("merge text", func() { dom.MergeText(p) }); err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// WrapMatches surrounds every match with a new boundary. Matches must be in
// document order, as returned by scan.Collect; they are applied back to front
// so the offsets of earlier matches stay valid while later ones split nodes.
func WrapMatches(matches []scan.Match, styleClass string) (int, error) {
	var (
		errs    []error
		wrapped int
	)
	for _, m := range slices.Backward(matches) {
		if err := validate(m); err != nil {
			errs = append(errs, err)
			continue
		}
		b := NewBoundary(styleClass)
		err := dom.Safely("wrap", func() {
			if sameParent(m) {
				wrapInPlace(m, b)
			} else {
				extractInto(m, b)
			}
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		wrapped++
	}
	return wrapped, errors.Join(errs...)
}

func validate(m scan.Match) error {
	start, end := m.Start, m.End
	if start.Node == nil || end.Node == nil ||
		start.Node.Parent == nil || end.Node.Parent == nil {
		return fmt.Errorf("wrap %q: %w", m.Text, dom.ErrDetached)
	}
	if start.Offset > len(start.Node.Data) || end.Offset > len(end.Node.Data) ||
		(m.SingleFragment() && start.Offset >= end.Offset) {
		return fmt.Errorf("wrap %q: %w", m.Text, ErrStaleMatch)
	}
	return nil
}

func sameParent(m scan.Match) bool {
	return m.Start.Node.Parent == m.End.Node.Parent
}

// wrapInPlace splits the edge text nodes and moves the covered siblings into
// b. Only valid when both ends share a parent, so every node between them is
// covered entirely.
func wrapInPlace(m scan.Match, b *html.Node) {
	first, last := m.Start.Node, m.End.Node
	parent := first.Parent

	if m.End.Offset < len(last.Data) {
		tail := dom.NewText(last.Data[m.End.Offset:])
		last.Data = last.Data[:m.End.Offset]
		dom.InsertAfter(tail, last)
	}
	if m.Start.Offset > 0 {
		head := first
		first = dom.NewText(head.Data[m.Start.Offset:])
		head.Data = head.Data[:m.Start.Offset]
		dom.InsertAfter(first, head)
		if m.SingleFragment() {
			last = first
		}
	}

	parent.InsertBefore(b, first)
	for n := first; n != nil; {
		next := n.NextSibling
		parent.RemoveChild(n)
		b.AppendChild(n)
		if n == last {
			break
		}
		n = next
	}
}

// extractInto handles spans whose ends live under different parents, such as
// a tag split by a host highlight element. The covered text is cut out of
// each fragment and re-inserted as a single text node inside b, placed right
// after the start fragment.
func extractInto(m scan.Match, b *html.Node) {
	for i, n := range m.Fragments {
		switch {
		case i == 0:
			n.Data = n.Data[:m.Start.Offset]
		case i == len(m.Fragments)-1:
			n.Data = n.Data[m.End.Offset:]
		default:
			n.Data = ""
		}
	}
	b.AppendChild(dom.NewText(m.Text))
	dom.InsertAfter(b, m.Start.Node)
}

// CleanupHighlights removes the host highlight elements that wrapping emptied,
// and empty text nodes left inside highlights that still hold text. Nothing
// outside a highlight is touched.
func CleanupHighlights(root *html.Node) (int, error) {
	var errs []error
	removed := 0
	empties := dom.FindAll(root, func(n *html.Node) bool {
		if n == root {
			return false
		}
		if dom.IsText(n) {
			return n.Data == "" && dom.HasClass(n.Parent, dom.HighlightClass)
		}
		return dom.HasClass(n, dom.HighlightClass) && dom.Text(n) == ""
	})
	for _, n := range slices.Backward(empties) {
		if n.Parent == nil {
			// Went away with an emptied highlight already removed.
			continue
		}
		isHighlight := dom.IsElement(n)
		if err := dom.Safely("cleanup", func() { n.Parent.RemoveChild(n) }); err != nil {
			errs = append(errs, err)
			continue
		}
		if isHighlight {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}
