// Package memhost is an in-memory rendering host. It keeps panels as
// golang.org/x/net/html trees and lets callers drive the events a real host
// would emit: rows appearing and disappearing, containers being swapped,
// scrolling and repaints.
package memhost

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/host"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const panelIDAttr = "data-panel-id"

type panel struct {
	id      host.PanelID
	root    *html.Node
	visible bool
}

type Host struct {
	shape host.Shape
	doc   *html.Node
	body  *html.Node

	panels []*panel

	nextSub       int
	layoutSubs    map[int]func()
	mutations     []*mutationObserver
	intersections []*intersectionObserver

	frames []func()

	// Distance of a row from the viewport edge in pixels; 0 means on
	// screen. Rows never scrolled count as on screen.
	distance map[*html.Node]int
}

var _ host.Host = (*Host)(nil)

// New returns a host with an empty document.
func New(shape host.Shape) *Host {
	doc := &html.Node{Type: html.DocumentNode}
	htmlEl := dom.NewElement(atom.Html)
	head := dom.NewElement(atom.Head)
	body := dom.NewElement(atom.Body)
	doc.AppendChild(htmlEl)
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	return newHost(shape, doc, body)
}

// FromDocument adopts an existing document. Every element carrying the panel
// class becomes an open, visible panel, identified by its data-panel-id
// attribute or its position.
func FromDocument(shape host.Shape, doc *html.Node) *Host {
	body := firstByAtom(doc, atom.Body)
	if body == nil {
		body = doc
	}
	h := newHost(shape, doc, body)
	for i, root := range dom.ByClass(doc, shape.PanelClass) {
		id, ok := dom.Attr(root, panelIDAttr)
		if !ok {
			id = "panel-" + strconv.Itoa(i)
		}
		h.panels = append(h.panels, &panel{id: host.PanelID(id), root: root, visible: true})
	}
	return h
}

func newHost(shape host.Shape, doc, body *html.Node) *Host {
	return &Host{
		shape:      shape,
		doc:        doc,
		body:       body,
		layoutSubs: make(map[int]func()),
		distance:   make(map[*html.Node]int),
	}
}

func firstByAtom(root *html.Node, a atom.Atom) *html.Node {
	for n := range dom.Walk(root) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			return n
		}
	}
	return nil
}

func (h *Host) Document() *html.Node {
	return h.doc
}

func (h *Host) Panels() []host.PanelID {
	ids := make([]host.PanelID, 0, len(h.panels))
	for _, p := range h.panels {
		ids = append(ids, p.id)
	}
	return ids
}

func (h *Host) panel(id host.PanelID) *panel {
	for _, p := range h.panels {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (h *Host) Visible(id host.PanelID) bool {
	p := h.panel(id)
	return p != nil && p.visible
}

func (h *Host) Root(id host.PanelID) *html.Node {
	if p := h.panel(id); p != nil {
		return p.root
	}
	return nil
}

func (h *Host) Results(id host.PanelID) *html.Node {
	root := h.Root(id)
	if root == nil {
		return nil
	}
	for n := range dom.Walk(root) {
		if dom.HasClass(n, h.shape.ResultsClass) {
			return n
		}
	}
	return nil
}

// Rows returns the rows currently under the panel's results container.
func (h *Host) Rows(id host.PanelID) []*html.Node {
	results := h.Results(id)
	if results == nil {
		return nil
	}
	return dom.ByClass(results, h.shape.RowClass)
}

func (h *Host) OnLayoutChange(fn func()) func() {
	id := h.nextSub
	h.nextSub++
	h.layoutSubs[id] = fn
	return func() { delete(h.layoutSubs, id) }
}

func (h *Host) layoutChanged() {
	keys := make([]int, 0, len(h.layoutSubs))
	for k := range h.layoutSubs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if fn, ok := h.layoutSubs[k]; ok {
			fn()
		}
	}
}

// OpenPanel adds an empty, visible panel and announces a layout change.
func (h *Host) OpenPanel(id host.PanelID) *html.Node {
	root := dom.NewElement(atom.Div, h.shape.PanelClass)
	dom.SetAttr(root, panelIDAttr, string(id))
	root.AppendChild(dom.NewElement(atom.Div, h.shape.ResultsClass))
	h.body.AppendChild(root)
	h.panels = append(h.panels, &panel{id: id, root: root, visible: true})
	h.layoutChanged()
	return root
}

// ClosePanel removes the panel from the document.
func (h *Host) ClosePanel(id host.PanelID) {
	p := h.panel(id)
	if p == nil {
		return
	}
	h.panels = slices.DeleteFunc(h.panels, func(q *panel) bool { return q == p })
	if p.root.Parent != nil {
		p.root.Parent.RemoveChild(p.root)
	}
	h.layoutChanged()
}

// ForgetPanel drops the panel from the host's registry but leaves its nodes
// in the document, like a view detached mid-toggle.
func (h *Host) ForgetPanel(id host.PanelID) {
	h.panels = slices.DeleteFunc(h.panels, func(q *panel) bool { return q.id == id })
	h.layoutChanged()
}

func (h *Host) SetVisible(id host.PanelID, visible bool) {
	if p := h.panel(id); p != nil && p.visible != visible {
		p.visible = visible
		h.layoutChanged()
	}
}

// NewRow builds a detached row whose text is split into one text node per
// part.
func (h *Host) NewRow(parts ...string) *html.Node {
	row := dom.NewElement(atom.Div, h.shape.RowClass)
	for _, p := range parts {
		row.AppendChild(dom.NewText(p))
	}
	return row
}

// AddRow appends a new row to the panel's results and notifies observers.
func (h *Host) AddRow(id host.PanelID, parts ...string) (*html.Node, error) {
	results := h.Results(id)
	if results == nil {
		return nil, fmt.Errorf("add row to %s: no results container", id)
	}
	row := h.NewRow(parts...)
	results.AppendChild(row)
	h.notify(host.Mutation{Target: results, Added: []*html.Node{row}})
	return row, nil
}

func (h *Host) RemoveRow(row *html.Node) {
	parent := row.Parent
	if parent == nil {
		return
	}
	parent.RemoveChild(row)
	h.notify(host.Mutation{Target: parent, Removed: []*html.Node{row}})
}

// SetRowText re-renders a row in place with new text fragments, the way a
// virtualized list recycles a row element.
func (h *Host) SetRowText(row *html.Node, parts ...string) {
	var removed, added []*html.Node
	for c := row.FirstChild; c != nil; c = row.FirstChild {
		row.RemoveChild(c)
		removed = append(removed, c)
	}
	for _, p := range parts {
		n := dom.NewText(p)
		row.AppendChild(n)
		added = append(added, n)
	}
	h.notify(host.Mutation{Target: row, Added: added, Removed: removed})
}

// EditText changes the data of a text node, as a character-data mutation.
func (h *Host) EditText(text *html.Node, data string) {
	text.Data = data
	h.notify(host.Mutation{Target: text, CharacterData: true})
}

// ReplaceResults swaps the panel's results container for a fresh one holding
// rows built from each entry of rows.
func (h *Host) ReplaceResults(id host.PanelID, rows ...[]string) (*html.Node, error) {
	old := h.Results(id)
	if old == nil || old.Parent == nil {
		return nil, fmt.Errorf("replace results of %s: no results container", id)
	}
	fresh := dom.NewElement(atom.Div, h.shape.ResultsClass)
	for _, parts := range rows {
		fresh.AppendChild(h.NewRow(parts...))
	}
	parent := old.Parent
	parent.InsertBefore(fresh, old)
	parent.RemoveChild(old)
	h.notify(host.Mutation{
		Target:  parent,
		Added:   []*html.Node{fresh},
		Removed: []*html.Node{old},
	})
	return fresh, nil
}

// Scroll moves a row to distancePx outside the viewport (0 = on screen)
// and queues intersection entries for observers whose margin it crosses.
func (h *Host) Scroll(row *html.Node, distancePx int) {
	h.distance[row] = distancePx
	for _, o := range h.intersections {
		o.update(row)
	}
}

func (h *Host) RequestFrame(fn func()) {
	h.frames = append(h.frames, fn)
}

// PendingFrames is the number of callbacks waiting for the next Frame.
func (h *Host) PendingFrames() int {
	return len(h.frames)
}

// Frame delivers queued intersection entries, then runs the frame callbacks
// requested so far. Callbacks requested while running wait for the next
// frame. It returns how many callbacks ran.
func (h *Host) Frame() int {
	for _, o := range slices.Clone(h.intersections) {
		o.deliver()
	}
	frames := h.frames
	h.frames = nil
	for _, fn := range frames {
		fn()
	}
	return len(frames)
}

func (h *Host) notify(m host.Mutation) {
	for _, o := range slices.Clone(h.mutations) {
		if o.active && dom.Contains(o.root, m.Target) {
			o.fn([]host.Mutation{m})
		}
	}
}
