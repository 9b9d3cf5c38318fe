package memhost

import (
	"errors"
	"slices"

	"github.com/hnimtadd/searchtag/host"
	"golang.org/x/net/html"
)

// ErrDisconnected is returned when an observer is disconnected twice.
var ErrDisconnected = errors.New("observer already disconnected")

type mutationObserver struct {
	h      *Host
	root   *html.Node
	fn     func([]host.Mutation)
	active bool
}

func (h *Host) ObserveMutations(root *html.Node, fn func([]host.Mutation)) host.Observer {
	o := &mutationObserver{h: h, root: root, fn: fn, active: true}
	h.mutations = append(h.mutations, o)
	return o
}

func (o *mutationObserver) Disconnect() error {
	if !o.active {
		return ErrDisconnected
	}
	o.active = false
	o.h.mutations = slices.DeleteFunc(o.h.mutations, func(m *mutationObserver) bool { return m == o })
	return nil
}

type intersectionObserver struct {
	h      *Host
	margin int
	fn     func([]host.Intersection)
	active bool

	// Last state reported per target; entries are only queued on change.
	targets map[*html.Node]bool
	pending []host.Intersection
}

func (h *Host) ObserveIntersection(marginPx int, fn func([]host.Intersection)) host.IntersectionObserver {
	o := &intersectionObserver{
		h:       h,
		margin:  marginPx,
		fn:      fn,
		active:  true,
		targets: make(map[*html.Node]bool),
	}
	h.intersections = append(h.intersections, o)
	return o
}

func (o *intersectionObserver) intersecting(n *html.Node) bool {
	return o.h.distance[n] <= o.margin
}

// Observe queues an initial entry for n, as browsers do.
func (o *intersectionObserver) Observe(n *html.Node) {
	if !o.active {
		return
	}
	if _, ok := o.targets[n]; ok {
		return
	}
	state := o.intersecting(n)
	o.targets[n] = state
	o.pending = append(o.pending, host.Intersection{Node: n, Intersecting: state})
}

func (o *intersectionObserver) Unobserve(n *html.Node) {
	delete(o.targets, n)
	o.pending = slices.DeleteFunc(o.pending, func(e host.Intersection) bool { return e.Node == n })
}

func (o *intersectionObserver) update(n *html.Node) {
	prev, ok := o.targets[n]
	if !ok || !o.active {
		return
	}
	if state := o.intersecting(n); state != prev {
		o.targets[n] = state
		o.pending = append(o.pending, host.Intersection{Node: n, Intersecting: state})
	}
}

func (o *intersectionObserver) deliver() {
	if !o.active || len(o.pending) == 0 {
		return
	}
	entries := o.pending
	o.pending = nil
	o.fn(entries)
}

func (o *intersectionObserver) Disconnect() error {
	if !o.active {
		return ErrDisconnected
	}
	o.active = false
	clear(o.targets)
	o.pending = nil
	o.h.intersections = slices.DeleteFunc(o.h.intersections, func(i *intersectionObserver) bool { return i == o })
	return nil
}

// Observers reports the number of live mutation and intersection observers.
func (h *Host) Observers() (mutations, intersections int) {
	return len(h.mutations), len(h.intersections)
}
