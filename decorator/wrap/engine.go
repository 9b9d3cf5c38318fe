package wrap

import (
	"github.com/hnimtadd/searchtag/decorator/grammar"
	"github.com/hnimtadd/searchtag/decorator/rowcache"
	"github.com/hnimtadd/searchtag/decorator/scan"
	"github.com/hnimtadd/searchtag/logger"
	"golang.org/x/net/html"
)

type Options struct {
	Grammar    grammar.Grammar
	StyleClass string
	// Cache is shared with whoever needs to forget rows the host removed.
	// A private one is created when nil.
	Cache  *rowcache.Cache
	Logger logger.Logger
}

// Result describes one ProcessRow call.
type Result struct {
	// The row was left untouched because nothing changed since the last
	// pass, or because it is already being processed further up the stack.
	Skipped bool

	Unwrapped int
	Wrapped   int
	Cleaned   int

	// At least one mutation hit a node the host had detached. The row is
	// left unrecorded in the cache so the next trigger retries it.
	Failed bool
}

// Stats accumulate over the engine's lifetime.
type Stats struct {
	Processed int
	Skipped   int
	Wrapped   int
	Failed    int
}

// Engine decorates rows. It is not safe for concurrent use; the host drives
// it from a single event loop.
type Engine struct {
	grammar    grammar.Grammar
	styleClass string
	cache      *rowcache.Cache

	// Roots with a pass in flight. A nested call for the same root (for
	// instance from a host callback fired by our own mutation) is refused.
	inProgress map[*html.Node]struct{}

	stats  Stats
	logger logger.Logger
}

func NewEngine(opts Options) *Engine {
	cache := opts.Cache
	if cache == nil {
		cache = rowcache.New()
	}
	return &Engine{
		grammar:    opts.Grammar,
		styleClass: opts.StyleClass,
		cache:      cache,
		inProgress: make(map[*html.Node]struct{}),
		logger:     logger.OrDefault(opts.Logger),
	}
}

func (e *Engine) Cache() *rowcache.Cache {
	return e.cache
}

func (e *Engine) Stats() Stats {
	return e.stats
}

func (e *Engine) StyleClass() string {
	return e.styleClass
}

// SetStyleClass changes the class used for boundaries created from now on.
// Existing boundaries keep theirs until the row is reprocessed with force.
func (e *Engine) SetStyleClass(class string) {
	e.styleClass = class
}

func (e *Engine) SetGrammar(g grammar.Grammar) {
	e.grammar = g
}

// ProcessRow brings the boundaries in row up to date with its text. Unless
// forced, rows whose signature did not change since the last pass are
// skipped, which makes repeated calls cheap and idempotent.
func (e *Engine) ProcessRow(row *html.Node, forced bool) Result {
	if _, busy := e.inProgress[row]; busy {
		return e.skip()
	}
	if !forced && e.cache.ShouldSkip(row) {
		return e.skip()
	}
	if !e.cache.ShouldReprocess(row, forced) {
		return e.skip()
	}

	e.inProgress[row] = struct{}{}
	defer delete(e.inProgress, row)

	var (
		res Result
		err error
	)
	// Unwrapping rows that never had a boundary only churns the tree.
	if forced || HasBoundaries(row) {
		res.Unwrapped, err = UnwrapAll(row)
		e.note(&res, "unwrap", err)
	}

	matches := scan.Collect(row, e.grammar)
	res.Wrapped, err = WrapMatches(matches, e.styleClass)
	e.note(&res, "wrap", err)

	res.Cleaned, err = CleanupHighlights(row)
	e.note(&res, "cleanup", err)

	e.stats.Processed++
	e.stats.Wrapped += res.Wrapped
	if res.Failed {
		e.stats.Failed++
		e.cache.Forget(row)
		return res
	}
	e.cache.Store(row, rowcache.Compute(row), res.Wrapped)
	return res
}

// Unwrap strips every boundary from row and forgets it.
func (e *Engine) Unwrap(row *html.Node) int {
	n, err := UnwrapAll(row)
	if err != nil {
		e.logger.Debug("unwrap failed", "err", err)
	}
	e.cache.Forget(row)
	return n
}

// Busy reports whether a pass over root is running.
func (e *Engine) Busy(root *html.Node) bool {
	_, ok := e.inProgress[root]
	return ok
}

func (e *Engine) skip() Result {
	e.stats.Skipped++
	return Result{Skipped: true}
}

func (e *Engine) note(res *Result, step string, err error) {
	if err == nil {
		return
	}
	res.Failed = true
	e.logger.Debug("row pass hit a detached node", "step", step, "err", err)
}
