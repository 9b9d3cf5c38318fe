package searchtag

import (
	"bytes"
	"testing"

	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/decorator/hidestate"
	"github.com/hnimtadd/searchtag/host"
	"github.com/hnimtadd/searchtag/host/memhost"
	"github.com/hnimtadd/searchtag/logger"
	"github.com/hnimtadd/searchtag/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, n))
	return buf.String()
}

func boundaries(n *html.Node) []*html.Node {
	return dom.FindAll(n, dom.IsWrapBoundary)
}

func texts(nodes []*html.Node) []string {
	out := []string{}
	for _, n := range nodes {
		out = append(out, dom.Text(n))
	}
	return out
}

func activate(t *testing.T, h host.Host, store settings.Store) *Plugin {
	t.Helper()
	p, err := Activate(Options{Host: h, Store: store, Logger: logger.Discard})
	require.NoError(t, err)
	return p
}

func TestActivate_NoHost(t *testing.T) {
	_, err := Activate(Options{})
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestActivate_DecoratesExistingPanels(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	h.OpenPanel("search")
	row, err := h.AddRow("search", "see #todo and ", "#done/later.")
	require.NoError(t, err)

	p := activate(t, h, nil)
	assert.Equal(t, []host.PanelID{"search"}, p.Coordinator().Bound())

	h.Frame()
	got := boundaries(row)
	assert.Equal(t, []string{"#todo", "#done/later"}, texts(got))
	for _, b := range got {
		assert.True(t, dom.HasClass(b, settings.DefaultWrapperClass))
	}
	assert.Equal(t, "see #todo and #done/later.", dom.Text(row))

	stats := p.Stats()
	assert.Equal(t, 1, stats.Panels)
	assert.Equal(t, 1, stats.Cached)
	assert.Equal(t, 2, stats.Wrapped)
}

func TestActivate_StoredSettings(t *testing.T) {
	data, err := settings.Encode(settings.Settings{WrapperClass: "pill", WrapAheadPx: 10})
	require.NoError(t, err)

	h := memhost.New(host.DefaultShape)
	h.OpenPanel("p")
	row, err := h.AddRow("p", "#x")
	require.NoError(t, err)

	p := activate(t, h, &settings.MemoryStore{Data: data})
	assert.Equal(t, "pill", p.Settings().WrapperClass)
	h.Frame()
	require.Len(t, boundaries(row), 1)
	assert.True(t, dom.HasClass(boundaries(row)[0], "pill"))
}

func TestActivate_BadSettingsFallBack(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	p := activate(t, h, &settings.MemoryStore{Data: []byte("not = [toml")})
	assert.Equal(t, settings.Defaults(), p.Settings())
}

func TestActivate_InstallsStyle(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	p := activate(t, h, nil)

	styles := dom.FindAll(h.Document(), func(n *html.Node) bool {
		id, _ := dom.Attr(n, "id")
		return id == hidestate.StyleID
	})
	require.Len(t, styles, 1)
	assert.Equal(t, hidestate.Rule, dom.Text(styles[0]))

	require.NoError(t, p.Close())
	assert.False(t, hidestate.RemoveStyle(h.Document()), "removed on close")
}

func TestApplySettings_ClassChangeRewraps(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	h.OpenPanel("p")
	row, err := h.AddRow("p", "a #b c")
	require.NoError(t, err)
	p := activate(t, h, nil)
	h.Frame()
	require.Len(t, boundaries(row), 1)

	next := p.Settings()
	next.WrapperClass = "chip"
	p.ApplySettings(next)

	got := boundaries(row)
	require.Len(t, got, 1, "old boundary replaced, not nested")
	assert.True(t, dom.HasClass(got[0], "chip"))
	assert.False(t, dom.HasClass(got[0], settings.DefaultWrapperClass))
	assert.Equal(t, "a #b c", dom.Text(row))
}

func TestApplySettings_ASCIIOnly(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	h.OpenPanel("p")
	row, err := h.AddRow("p", "#café #cafe")
	require.NoError(t, err)
	p := activate(t, h, nil)
	h.Frame()
	assert.Equal(t, []string{"#café", "#cafe"}, texts(boundaries(row)))

	next := p.Settings()
	next.ASCIIOnly = true
	p.ApplySettings(next)
	assert.Equal(t, []string{"#cafe"}, texts(boundaries(row)))
	assert.Equal(t, "#café #cafe", dom.Text(row))
}

func TestApplySettings_HideToggle(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	root := h.OpenPanel("p")
	p := activate(t, h, nil)
	assert.False(t, dom.HasClass(root, hidestate.MarkerClass))

	on := p.Settings()
	on.HideInSearch = true
	p.ApplySettings(on)
	assert.True(t, dom.HasClass(root, hidestate.MarkerClass))

	// Rows added while hiding are decorated without waiting for a frame.
	row, err := h.AddRow("p", "#now")
	require.NoError(t, err)
	assert.Len(t, boundaries(row), 1)

	off := p.Settings()
	off.HideInSearch = false
	p.ApplySettings(off)
	assert.False(t, dom.HasClass(root, hidestate.MarkerClass))
}

func TestForm_AppliesAndPersists(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	h.OpenPanel("p")
	row, err := h.AddRow("p", "#tag")
	require.NoError(t, err)
	store := &settings.MemoryStore{}
	p := activate(t, h, store)
	h.Frame()

	require.NoError(t, p.Form().Set(settings.KeyWrapperClass, "badge"))
	assert.Equal(t, "badge", p.Settings().WrapperClass)
	require.Len(t, boundaries(row), 1)
	assert.True(t, dom.HasClass(boundaries(row)[0], "badge"))

	saved, err := settings.Load(store)
	require.NoError(t, err)
	assert.Equal(t, "badge", saved.WrapperClass)

	assert.ErrorIs(t, p.Form().Set("nope", "1"), settings.ErrUnknownKey)
}

func TestClose_RevertsDocument(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	h.OpenPanel("a")
	h.OpenPanel("b")
	_, err := h.AddRow("a", "one #x two")
	require.NoError(t, err)
	_, err = h.AddRow("b", "#y", "#z")
	require.NoError(t, err)
	before := render(t, h.Document())

	p := activate(t, h, nil)
	h.Frame()
	require.Len(t, boundaries(h.Document()), 3)

	require.NoError(t, p.Close())
	assert.Empty(t, boundaries(h.Document()))
	assert.Zero(t, p.Stats().Cached)
	mutations, intersections := h.Observers()
	assert.Zero(t, mutations)
	assert.Zero(t, intersections)

	// "#y" and "#z" come back as a single merged text node.
	after := render(t, h.Document())
	assert.Equal(t, before, after)

	assert.ErrorIs(t, p.Close(), ErrClosed)
	assert.ErrorIs(t, p.Rescan(), ErrClosed)
}

func TestClose_SweepsForgottenPanels(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	root := h.OpenPanel("p")
	row, err := h.AddRow("p", "#stray")
	require.NoError(t, err)

	p := activate(t, h, nil)
	on := p.Settings()
	on.HideInSearch = true
	p.ApplySettings(on)
	require.Len(t, boundaries(row), 1)
	require.True(t, dom.HasClass(root, hidestate.MarkerClass))

	// The host drops the panel while its nodes stay in the document.
	h.ForgetPanel("p")
	require.NoError(t, p.Close())
	assert.Empty(t, boundaries(row))
	assert.False(t, dom.HasClass(root, hidestate.MarkerClass))
	assert.Equal(t, "#stray", dom.Text(row))
}

func TestRescan(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	h.OpenPanel("p")
	row, err := h.AddRow("p", "#a")
	require.NoError(t, err)
	p := activate(t, h, nil)

	require.NoError(t, p.Rescan())
	assert.Len(t, boundaries(row), 1, "rescan does not wait for a frame")
	assert.Zero(t, p.Coordinator().Pending())
}

func TestApplySettings_HideOffSweepsUnboundPanels(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	bound := h.OpenPanel("bound")
	stray := h.OpenPanel("stray")
	p := activate(t, h, nil)

	on := p.Settings()
	on.HideInSearch = true
	p.ApplySettings(on)
	require.True(t, dom.HasClass(stray, hidestate.MarkerClass))

	h.ForgetPanel("stray")
	assert.Equal(t, []host.PanelID{"bound"}, p.Coordinator().Bound())

	off := p.Settings()
	off.HideInSearch = false
	p.ApplySettings(off)
	assert.False(t, dom.HasClass(bound, hidestate.MarkerClass))
	assert.False(t, dom.HasClass(stray, hidestate.MarkerClass))
	assert.Equal(t, "search-panel", dom.Classes(stray)[0])
}

// noDocument is a host that has lost its document, as during a reload.
type noDocument struct {
	*memhost.Host
}

func (noDocument) Document() *html.Node { return nil }

func TestClose_WithoutDocument(t *testing.T) {
	mem := memhost.New(host.DefaultShape)
	mem.OpenPanel("p")
	row, err := mem.AddRow("p", "#a")
	require.NoError(t, err)

	p := activate(t, noDocument{mem}, nil)
	mem.Frame()
	require.Len(t, boundaries(row), 1)

	on := p.Settings()
	on.HideInSearch = true
	p.ApplySettings(on)
	off := p.Settings()
	off.HideInSearch = false
	p.ApplySettings(off)

	require.NotPanics(t, func() { require.NoError(t, p.Close()) })
	assert.Empty(t, boundaries(row), "panel rows are still unwrapped")
}

func TestApplySettings_KeepsFormInStep(t *testing.T) {
	h := memhost.New(host.DefaultShape)
	store := &settings.MemoryStore{}
	p := activate(t, h, store)

	// A change that bypasses the form, like a reloaded settings file.
	watched := p.Settings()
	watched.HideInSearch = true
	watched.WrapAheadPx = 40
	p.ApplySettings(watched)
	assert.Equal(t, watched, p.Form().Current())

	require.NoError(t, p.Form().Set(settings.KeyWrapperClass, "chip"))
	saved, err := settings.Load(store)
	require.NoError(t, err)
	assert.True(t, saved.HideInSearch, "watched values are not overwritten")
	assert.Equal(t, 40, saved.WrapAheadPx)
	assert.Equal(t, "chip", saved.WrapperClass)
}
