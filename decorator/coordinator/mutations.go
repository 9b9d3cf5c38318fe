package coordinator

import (
	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/host"
	"golang.org/x/net/html"
)

type batchKind int

const (
	// Rows were added, removed or edited inside the current container.
	batchRowDelta batchKind = iota
	// The host put a fresh results container in place of ours.
	batchContainerSwap
)

func (c *Coordinator) classify(reg *registration, batch []host.Mutation) batchKind {
	for _, m := range batch {
		for _, n := range m.Added {
			for _, results := range dom.ByClass(n, c.shape.ResultsClass) {
				if results != reg.results {
					return batchContainerSwap
				}
			}
		}
		for _, n := range m.Removed {
			if reg.results != nil && dom.Contains(n, reg.results) {
				return batchContainerSwap
			}
		}
	}
	return batchRowDelta
}

func (c *Coordinator) onMutations(reg *registration, batch []host.Mutation) {
	if !c.current(reg) {
		// A late batch for a registration that was already replaced.
		return
	}
	switch c.classify(reg, batch) {
	case batchContainerSwap:
		c.logger.Debug("results container swapped", "panel", reg.panel, "registration", reg.id)
		c.Bind(reg.panel, true)
	case batchRowDelta:
		for _, m := range batch {
			c.applyRowDelta(reg, m)
		}
	}
}

func (c *Coordinator) applyRowDelta(reg *registration, m host.Mutation) {
	isRow := func(n *html.Node) bool { return dom.HasClass(n, c.shape.RowClass) }

	for _, n := range m.Removed {
		for _, row := range dom.FindAll(n, isRow) {
			c.untrack(reg, row)
		}
	}
	for _, n := range m.Added {
		if !c.attached(reg, n) {
			continue
		}
		rows := dom.FindAll(n, isRow)
		for _, row := range rows {
			c.track(reg, row)
			c.schedule(reg, row)
		}
		if len(rows) == 0 {
			// Content added inside an existing row.
			if row := dom.Closest(n, isRow); row != nil {
				c.track(reg, row)
				c.schedule(reg, row)
			}
		}
	}
	// Text edits and removals inside a row change what it should look like.
	if row := dom.Closest(m.Target, isRow); row != nil && c.attached(reg, row) {
		c.track(reg, row)
		c.schedule(reg, row)
	}
}
