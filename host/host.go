// Package host describes what the decorator needs from the application that
// renders search panels. The host owns every node; the decorator only
// rearranges text inside rows it is shown.
package host

import "golang.org/x/net/html"

type PanelID string

// Shape names the classes that identify the host's structures.
type Shape struct {
	// Outer container of a search panel; the hide marker goes here.
	PanelClass string
	// Container holding the rows. The host swaps it wholesale when a new
	// search starts.
	ResultsClass string
	// One result line.
	RowClass string
}

var DefaultShape = Shape{
	PanelClass:   "search-panel",
	ResultsClass: "search-results-children",
	RowClass:     "search-result-file-match",
}

// Mutation is one record of a mutation batch.
type Mutation struct {
	// The node whose children or text changed.
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
	// Text of Target itself changed.
	CharacterData bool
}

// Intersection reports a node entering or leaving the viewport, widened by
// the observer's margin.
type Intersection struct {
	Node         *html.Node
	Intersecting bool
}

type Observer interface {
	Disconnect() error
}

type IntersectionObserver interface {
	Observe(n *html.Node)
	Unobserve(n *html.Node)
	Disconnect() error
}

// Host is the collaborator contract. All callbacks are invoked on the host's
// event loop, never concurrently.
type Host interface {
	// Document is the application-wide root, used for sweeps that must
	// reach panels no longer registered.
	Document() *html.Node

	// Panels lists the search panels currently open, visible or not.
	Panels() []PanelID
	Visible(id PanelID) bool
	// Root and Results return nil once the panel is gone.
	Root(id PanelID) *html.Node
	Results(id PanelID) *html.Node

	OnLayoutChange(fn func()) (cancel func())
	ObserveMutations(root *html.Node, fn func([]Mutation)) Observer
	ObserveIntersection(marginPx int, fn func([]Intersection)) IntersectionObserver
	// RequestFrame runs fn once before the next repaint.
	RequestFrame(fn func())
}
