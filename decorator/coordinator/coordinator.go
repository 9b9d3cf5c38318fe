// Package coordinator keeps tag boundaries in step with live search panels.
//
// For every visible panel it holds one registration: a mutation observer on
// the panel root and an intersection observer on the rows. Rows that appear,
// change or scroll into the lookahead area are queued and processed once per
// frame; when the host swaps the results container wholesale the panel is
// rebound and rescanned synchronously.
package coordinator

import (
	"cmp"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/hnimtadd/searchtag/decorator/datastruct"
	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/decorator/hidestate"
	"github.com/hnimtadd/searchtag/decorator/wrap"
	"github.com/hnimtadd/searchtag/host"
	"github.com/hnimtadd/searchtag/logger"
	"golang.org/x/net/html"
)

type State int

const (
	StateUnbound State = iota
	StateBound
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	default:
		return "unknown"
	}
}

type Options struct {
	Host   host.Host
	Shape  host.Shape
	Engine *wrap.Engine
	Hide   *hidestate.Controller
	// Lookahead margin handed to the intersection observers.
	MarginPx int
	Logger   logger.Logger
}

type registration struct {
	id      string
	panel   host.PanelID
	root    *html.Node
	results *html.Node

	mutations  host.Observer
	visibility host.IntersectionObserver

	// Rows handed to the intersection observer.
	rows map[*html.Node]struct{}
}

// Coordinator is driven entirely from the host's event loop and is not safe
// for concurrent use.
type Coordinator struct {
	host   host.Host
	shape  host.Shape
	engine *wrap.Engine
	hide   *hidestate.Controller
	margin int

	regs map[host.PanelID]*registration

	pending        *datastruct.Queue[*html.Node]
	frameRequested bool

	cancelLayout func()
	closed       bool

	logger logger.Logger
}

func New(opts Options) *Coordinator {
	l := logger.OrDefault(opts.Logger)
	hide := opts.Hide
	if hide == nil {
		hide = hidestate.New(false, l)
	}
	return &Coordinator{
		host:    opts.Host,
		shape:   opts.Shape,
		engine:  opts.Engine,
		hide:    hide,
		margin:  opts.MarginPx,
		regs:    make(map[host.PanelID]*registration),
		pending: datastruct.NewQueue[*html.Node](),
		logger:  l,
	}
}

// Start subscribes to layout changes and binds the panels already open.
func (c *Coordinator) Start() {
	if c.cancelLayout != nil || c.closed {
		return
	}
	c.cancelLayout = c.host.OnLayoutChange(c.Refresh)
	c.Refresh()
}

func (c *Coordinator) State(id host.PanelID) State {
	if _, ok := c.regs[id]; ok {
		return StateBound
	}
	return StateUnbound
}

// RegistrationID identifies the current registration of a panel, or "" when
// it is unbound. A rebind always yields a new id.
func (c *Coordinator) RegistrationID(id host.PanelID) string {
	if reg, ok := c.regs[id]; ok {
		return reg.id
	}
	return ""
}

// Bound lists bound panels in a stable order.
func (c *Coordinator) Bound() []host.PanelID {
	return slices.Sorted(maps.Keys(c.regs))
}

// Roots returns the root container of every bound panel.
func (c *Coordinator) Roots() []*html.Node {
	roots := make([]*html.Node, 0, len(c.regs))
	for _, reg := range c.registrations() {
		roots = append(roots, reg.root)
	}
	return roots
}

// Pending is the number of rows waiting for the next frame.
func (c *Coordinator) Pending() int {
	return c.pending.Len()
}

func (c *Coordinator) SetMargin(px int) {
	c.margin = px
}

func (c *Coordinator) registrations() []*registration {
	regs := slices.Collect(maps.Values(c.regs))
	slices.SortFunc(regs, func(a, b *registration) int { return cmp.Compare(a.panel, b.panel) })
	return regs
}

// Refresh reconciles registrations with the host's panels: newly visible
// panels are bound, closed ones unbound, and panels whose containers were
// replaced are rebound with a forced rescan.
func (c *Coordinator) Refresh() {
	if c.closed {
		return
	}
	open := make(map[host.PanelID]struct{})
	for _, id := range c.host.Panels() {
		open[id] = struct{}{}
		reg, bound := c.regs[id]
		switch {
		case !bound && c.host.Visible(id):
			c.Bind(id, false)
		case bound && (reg.root != c.host.Root(id) || reg.results != c.host.Results(id)):
			c.logger.Debug("results container replaced", "panel", id)
			c.Bind(id, true)
		}
	}
	for _, reg := range c.registrations() {
		if _, ok := open[reg.panel]; !ok {
			c.Unbind(reg.panel)
		}
	}
}

// Bind (re)builds the registration of a panel. Any previous registration is
// torn down first. When forced, every row is reprocessed synchronously,
// bypassing the row cache.
func (c *Coordinator) Bind(id host.PanelID, forced bool) {
	if c.closed {
		return
	}
	c.Unbind(id)

	root := c.host.Root(id)
	if root == nil {
		c.logger.Debug("panel has no root, not binding", "panel", id)
		return
	}
	reg := &registration{
		id:      uuid.NewString(),
		panel:   id,
		root:    root,
		results: c.host.Results(id),
		rows:    make(map[*html.Node]struct{}),
	}
	reg.visibility = c.host.ObserveIntersection(c.margin, func(entries []host.Intersection) {
		c.onIntersections(reg, entries)
	})
	reg.mutations = c.host.ObserveMutations(root, func(batch []host.Mutation) {
		c.onMutations(reg, batch)
	})
	c.regs[id] = reg
	c.hide.Apply(root)

	for _, row := range c.rowsUnder(reg.results) {
		c.track(reg, row)
	}
	if forced {
		c.rescan(reg)
	}
	c.logger.Debug("panel bound",
		"panel", id, "registration", reg.id, "rows", len(reg.rows), "forced", forced)
}

// Unbind disconnects the panel's observers and drops its queued rows.
func (c *Coordinator) Unbind(id host.PanelID) {
	reg, ok := c.regs[id]
	if !ok {
		return
	}
	delete(c.regs, id)
	c.disconnect(reg)

	current := c.host.Results(id)
	for row := range reg.rows {
		c.pending.Remove(row)
		if !dom.Contains(current, row) {
			c.engine.Cache().Forget(row)
		}
	}
	c.logger.Debug("panel unbound", "panel", id, "registration", reg.id)
}

func (c *Coordinator) disconnect(reg *registration) {
	for _, o := range []host.Observer{reg.mutations, reg.visibility} {
		if o == nil {
			continue
		}
		var err error
		if perr := dom.Safely("disconnect", func() { err = o.Disconnect() }); perr != nil {
			err = perr
		}
		if err != nil {
			c.logger.Debug("observer disconnect failed", "registration", reg.id, "err", err)
		}
	}
}

// RebindAll rebuilds every registration, for instance after the margin
// changed.
func (c *Coordinator) RebindAll(forced bool) {
	for _, id := range c.Bound() {
		c.Bind(id, forced)
	}
}

// RescanAll reprocesses every row of every bound panel synchronously.
func (c *Coordinator) RescanAll() {
	for _, reg := range c.registrations() {
		c.rescan(reg)
	}
}

func (c *Coordinator) rescan(reg *registration) {
	for _, row := range c.rowsUnder(reg.results) {
		c.track(reg, row)
		c.pending.Remove(row)
		c.engine.ProcessRow(row, true)
	}
}

// Close tears down every registration and stops listening to the host.
// Boundaries already inserted are left for the caller to remove.
func (c *Coordinator) Close() {
	if c.closed {
		return
	}
	if c.cancelLayout != nil {
		c.cancelLayout()
		c.cancelLayout = nil
	}
	for _, reg := range c.registrations() {
		c.Unbind(reg.panel)
	}
	c.pending.Clear()
	c.closed = true
}

func (c *Coordinator) rowsUnder(n *html.Node) []*html.Node {
	if n == nil {
		return nil
	}
	return dom.ByClass(n, c.shape.RowClass)
}

func (c *Coordinator) track(reg *registration, row *html.Node) {
	if _, ok := reg.rows[row]; ok {
		return
	}
	reg.rows[row] = struct{}{}
	reg.visibility.Observe(row)
}

func (c *Coordinator) untrack(reg *registration, row *html.Node) {
	if _, ok := reg.rows[row]; !ok {
		return
	}
	delete(reg.rows, row)
	reg.visibility.Unobserve(row)
	c.pending.Remove(row)
	c.engine.Cache().Forget(row)
}

// attached reports whether row still belongs to reg's live results.
func (c *Coordinator) attached(reg *registration, row *html.Node) bool {
	return reg.results != nil &&
		dom.Contains(reg.results, row) &&
		dom.Contains(reg.root, reg.results)
}

func (c *Coordinator) owner(row *html.Node) *registration {
	for _, reg := range c.regs {
		if c.attached(reg, row) {
			return reg
		}
	}
	return nil
}

func (c *Coordinator) current(reg *registration) bool {
	return !c.closed && c.regs[reg.panel] == reg
}

// schedule queues row for the next frame. While tags are hidden the row is
// processed right away instead, so it never shows undecorated for a frame
// before the hide rule can match.
func (c *Coordinator) schedule(reg *registration, row *html.Node) {
	if c.hide.Enabled() {
		if c.attached(reg, row) {
			c.engine.ProcessRow(row, false)
		}
		return
	}
	c.pending.Push(row)
	c.requestFrame()
}

func (c *Coordinator) requestFrame() {
	if c.frameRequested {
		return
	}
	c.frameRequested = true
	c.host.RequestFrame(c.flush)
}

// flush processes the rows queued since the last frame. Rows detached in the
// meantime are dropped.
func (c *Coordinator) flush() {
	c.frameRequested = false
	if c.closed {
		return
	}
	for _, row := range c.pending.Drain() {
		if c.owner(row) == nil {
			continue
		}
		c.engine.ProcessRow(row, false)
	}
}

func (c *Coordinator) onIntersections(reg *registration, entries []host.Intersection) {
	if !c.current(reg) {
		return
	}
	for _, e := range entries {
		if !e.Intersecting {
			continue
		}
		if _, ok := reg.rows[e.Node]; !ok {
			continue
		}
		c.schedule(reg, e.Node)
	}
}
