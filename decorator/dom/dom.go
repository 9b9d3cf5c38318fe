// Package dom holds the small set of tree helpers the decorator needs on top
// of golang.org/x/net/html nodes: class lists, text content, ordered walks and
// mutations that survive nodes being pulled out from under them.
package dom

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrDetached is returned when a mutation touched a node that the host had
// already removed or moved.
var ErrDetached = errors.New("node detached")

// Safely runs fn and turns a panic raised by the html package (which panics
// on InsertBefore/RemoveChild misuse, typically because the host replaced a
// node concurrently) into an error wrapping ErrDetached.
func Safely(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: %v", op, ErrDetached, r)
		}
	}()
	fn()
	return nil
}

// NewElement returns a detached element carrying the given classes.
func NewElement(a atom.Atom, classes ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
	}
	if len(classes) > 0 {
		n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: strings.Join(classes, " ")})
	}
	return n
}

func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

func IsText(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode
}

// Attr returns the value of key and whether it was present.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func RemoveAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

func HasClass(n *html.Node, class string) bool {
	if !IsElement(n) || class == "" {
		return false
	}
	return slices.Contains(Classes(n), class)
}

func AddClass(n *html.Node, class string) {
	if class == "" || HasClass(n, class) {
		return
	}
	SetAttr(n, "class", strings.Join(append(Classes(n), class), " "))
}

// RemoveClass drops class from n. The attribute is removed entirely once the
// list is empty so a round trip leaves the element as it was.
func RemoveClass(n *html.Node, class string) {
	if !HasClass(n, class) {
		return
	}
	rest := slices.DeleteFunc(Classes(n), func(c string) bool { return c == class })
	if len(rest) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(rest, " "))
}

// Walk yields n and all of its descendants in document order. Siblings are
// read ahead, so the caller may detach the node it was just handed, but not
// the nodes that follow it. A nil n yields nothing.
func Walk(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		if n == nil {
			return
		}
		walk(n, yield)
	}
}

func walk(n *html.Node, yield func(*html.Node) bool) bool {
	if !yield(n) {
		return false
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if !walk(c, yield) {
			return false
		}
		c = next
	}
	return true
}

// FindAll collects the nodes under root (root included) matching pred. The
// result is a snapshot, safe to mutate while iterating.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for n := range Walk(root) {
		if pred(n) {
			out = append(out, n)
		}
	}
	return out
}

func ByClass(root *html.Node, class string) []*html.Node {
	return FindAll(root, func(n *html.Node) bool { return HasClass(n, class) })
}

// Closest returns the nearest ancestor of n (n included) matching pred.
func Closest(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for ; n != nil; n = n.Parent {
		if pred(n) {
			return n
		}
	}
	return nil
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	if root == nil {
		return false
	}
	return Closest(n, func(p *html.Node) bool { return p == root }) != nil
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var sb strings.Builder
	for c := range Walk(n) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// ReplaceWithChildren moves the children of n into its parent at n's position
// and removes n.
func ReplaceWithChildren(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		panic("html: ReplaceWithChildren called for a detached Node")
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}

// InsertAfter inserts child right after ref, which must be attached.
func InsertAfter(child, ref *html.Node) {
	ref.Parent.InsertBefore(child, ref.NextSibling)
}

// MergeText joins runs of adjacent text children of parent into one node and
// drops the empty ones, like the DOM's Node.normalize for a single level.
func MergeText(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type != html.TextNode {
			c = next
			continue
		}
		for next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			after := next.NextSibling
			parent.RemoveChild(next)
			next = after
		}
		if c.Data == "" {
			parent.RemoveChild(c)
		}
		c = next
	}
}
