// Package searchtag decorates hashtags in a host's search panels and keeps
// the decoration in step as the panels re-render.
//
// Activate builds everything and starts listening to the host; Close undoes
// every change made to the host's tree, whatever the settings were.
package searchtag

import (
	"errors"
	"fmt"

	"github.com/hnimtadd/searchtag/decorator/coordinator"
	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/decorator/hidestate"
	"github.com/hnimtadd/searchtag/decorator/wrap"
	"github.com/hnimtadd/searchtag/host"
	"github.com/hnimtadd/searchtag/logger"
	"github.com/hnimtadd/searchtag/settings"
)

var (
	ErrNoHost = errors.New("no host")
	ErrClosed = errors.New("plugin closed")
)

type Options struct {
	Host host.Host
	// Zero value means host.DefaultShape.
	Shape host.Shape
	// Nil keeps settings in memory for the session only.
	Store  settings.Store
	Logger logger.Logger
}

type Plugin struct {
	host     host.Host
	shape    host.Shape
	store    settings.Store
	settings settings.Settings

	engine *wrap.Engine
	hide   *hidestate.Controller
	coord  *coordinator.Coordinator
	form   *settings.Form

	closed bool
	logger logger.Logger
}

// Stats summarises the work done since activation.
type Stats struct {
	wrap.Stats
	Panels int
	Cached int
}

// Activate loads the settings, binds every visible panel and starts
// following the host. A settings store that cannot be read is logged and
// the defaults are used.
func Activate(opts Options) (*Plugin, error) {
	if opts.Host == nil {
		return nil, fmt.Errorf("activate: %w", ErrNoHost)
	}
	l := logger.OrDefault(opts.Logger)
	shape := opts.Shape
	if shape == (host.Shape{}) {
		shape = host.DefaultShape
	}
	store := opts.Store
	if store == nil {
		store = &settings.MemoryStore{}
	}

	s, err := settings.Load(store)
	if err != nil {
		l.Warn("using default settings", "err", err)
	}

	p := &Plugin{
		host:     opts.Host,
		shape:    shape,
		store:    store,
		settings: s,
		logger:   l,
	}
	p.engine = wrap.NewEngine(wrap.Options{
		Grammar:    s.Grammar(),
		StyleClass: s.Class(),
		Logger:     l,
	})
	p.hide = hidestate.New(s.HideInSearch, l)
	p.coord = coordinator.New(coordinator.Options{
		Host:     opts.Host,
		Shape:    shape,
		Engine:   p.engine,
		Hide:     p.hide,
		MarginPx: s.Margin(),
		Logger:   l,
	})
	p.form = settings.NewForm(store, s, p.ApplySettings, l)

	hidestate.InstallStyle(opts.Host.Document())
	p.coord.Start()
	l.Info("search tags active",
		"panels", len(p.coord.Bound()), "class", s.Class(), "hide", s.HideInSearch)
	return p, nil
}

func (p *Plugin) Settings() settings.Settings {
	return p.settings
}

// Form is the settings panel the host renders.
func (p *Plugin) Form() *settings.Form {
	return p.form
}

// Coordinator exposes the panel registrations, mostly for diagnostics.
func (p *Plugin) Coordinator() *coordinator.Coordinator {
	return p.coord
}

// ApplySettings switches to s and rebinds every panel with a forced rescan,
// so class and grammar changes reach rows that were already decorated.
// Settings that normalize to the current ones are ignored.
func (p *Plugin) ApplySettings(s settings.Settings) {
	if p.closed {
		return
	}
	prev := p.settings
	p.form.Update(s)
	if s.Equal(prev) {
		p.logger.Debug("settings unchanged")
		return
	}
	p.settings = s

	p.engine.SetStyleClass(s.Class())
	p.engine.SetGrammar(s.Grammar())
	p.coord.SetMargin(s.Margin())
	if prev.HideInSearch != s.HideInSearch {
		p.hide.Toggle(s.HideInSearch, p.host.Document(), p.coord.Roots())
	}
	p.coord.RebindAll(true)
	p.logger.Debug("settings applied", "class", s.Class(), "margin", s.Margin(),
		"hide", s.HideInSearch, "ascii", s.ASCIIOnly)
}

// Rescan reprocesses every row of every bound panel right away.
func (p *Plugin) Rescan() error {
	if p.closed {
		return ErrClosed
	}
	p.coord.RescanAll()
	return nil
}

func (p *Plugin) Stats() Stats {
	return Stats{
		Stats:  p.engine.Stats(),
		Panels: len(p.coord.Bound()),
		Cached: p.engine.Cache().Len(),
	}
}

// Close stops following the host and reverts every change: boundaries are
// removed from all panels (and anywhere else in the document), the style
// element and all hide markers go, and the row cache is dropped.
func (p *Plugin) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	p.coord.Close()

	unwrapped := 0
	for _, id := range p.host.Panels() {
		results := p.host.Results(id)
		if results == nil {
			continue
		}
		for _, row := range dom.ByClass(results, p.shape.RowClass) {
			unwrapped += p.engine.Unwrap(row)
		}
	}
	doc := p.host.Document()
	if n, err := wrap.UnwrapAll(doc); err != nil {
		p.logger.Debug("sweep hit detached nodes", "err", err)
	} else {
		unwrapped += n
	}
	hidestate.RemoveStyle(doc)
	hidestate.ClearAll(doc)
	p.engine.Cache().Reset()

	p.logger.Info("search tags inactive", "unwrapped", unwrapped)
	return nil
}
