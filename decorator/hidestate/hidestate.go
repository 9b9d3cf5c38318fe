// Package hidestate toggles the container-level marker that hides tag
// boundaries inside search panels, and owns the style element carrying the
// rule that marker activates.
package hidestate

import (
	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/logger"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	MarkerClass = "sst-hide-tags"
	StyleID     = "sst-style"
)

// Rule is the CSS installed in the document head.
const Rule = "." + MarkerClass + " ." + dom.WrapperClass + " { display: none; }"

type Controller struct {
	on     bool
	logger logger.Logger
}

func New(on bool, l logger.Logger) *Controller {
	return &Controller{on: on, logger: logger.OrDefault(l)}
}

func (c *Controller) Enabled() bool {
	return c.on
}

// Apply sets or clears the marker on one panel root to match the current
// state.
func (c *Controller) Apply(root *html.Node) {
	if root == nil {
		return
	}
	if c.on {
		dom.AddClass(root, MarkerClass)
	} else {
		dom.RemoveClass(root, MarkerClass)
	}
}

// Toggle changes the state and re-applies it to roots. Turning it off also
// sweeps doc, so panels that slipped out of the registration list while the
// toggle happened lose their marker too.
func (c *Controller) Toggle(on bool, doc *html.Node, roots []*html.Node) {
	c.on = on
	for _, root := range roots {
		c.Apply(root)
	}
	if !on {
		if n := ClearAll(doc); n > 0 {
			c.logger.Debug("cleared stray hide markers", "count", n)
		}
	}
}

// ClearAll removes the marker from every element under doc.
func ClearAll(doc *html.Node) int {
	if doc == nil {
		return 0
	}
	marked := dom.ByClass(doc, MarkerClass)
	for _, n := range marked {
		dom.RemoveClass(n, MarkerClass)
	}
	return len(marked)
}

// InstallStyle adds the style element to the document head once.
func InstallStyle(doc *html.Node) *html.Node {
	if existing := findStyle(doc); existing != nil {
		return existing
	}
	head := head(doc)
	if head == nil {
		return nil
	}
	style := dom.NewElement(atom.Style)
	dom.SetAttr(style, "id", StyleID)
	style.AppendChild(dom.NewText(Rule))
	head.AppendChild(style)
	return style
}

// RemoveStyle removes the style element, reporting whether it was present.
func RemoveStyle(doc *html.Node) bool {
	style := findStyle(doc)
	if style == nil || style.Parent == nil {
		return false
	}
	style.Parent.RemoveChild(style)
	return true
}

func findStyle(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	for n := range dom.Walk(doc) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Style {
			if id, _ := dom.Attr(n, "id"); id == StyleID {
				return n
			}
		}
	}
	return nil
}

func head(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	for n := range dom.Walk(doc) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Head {
			return n
		}
	}
	if doc.Type == html.ElementNode {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}
