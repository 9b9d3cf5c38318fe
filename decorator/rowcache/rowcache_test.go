package rowcache

import (
	"testing"

	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/stretchr/testify/assert"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func row(parts ...string) *html.Node {
	r := dom.NewElement(atom.Div)
	for _, p := range parts {
		r.AppendChild(dom.NewText(p))
	}
	return r
}

func TestCompute(t *testing.T) {
	assert.Equal(t, Signature{Length: 0, Triggers: 0}, Compute(row()))
	assert.Equal(t, Signature{Length: 11, Triggers: 2}, Compute(row("#a and ", "#b c")))
}

func TestSignature_Hash(t *testing.T) {
	a := Signature{Length: 4, Triggers: 1}
	b := Signature{Length: 4, Triggers: 1}
	c := Signature{Length: 5, Triggers: 1}
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Equal(t, "Signature{len=4, triggers=1}", a.String())
}

func TestCache_ShouldReprocess(t *testing.T) {
	c := New()
	r := row("hello #tag")

	assert.True(t, c.ShouldReprocess(r, false), "unknown row")
	c.Store(r, Compute(r), 0)
	assert.False(t, c.ShouldReprocess(r, false), "unchanged row")
	assert.True(t, c.ShouldReprocess(r, true), "forced")

	r.FirstChild.Data = "hello #tag!"
	assert.True(t, c.ShouldReprocess(r, false), "length changed")

	c.Store(r, Compute(r), 0)
	r.FirstChild.Data = "hello  tag!"
	assert.True(t, c.ShouldReprocess(r, false), "trigger count changed")
}

func TestCache_LostBoundaries(t *testing.T) {
	c := New()
	r := dom.NewElement(atom.Div)
	w := dom.NewElement(atom.Span, dom.WrapperClass)
	w.AppendChild(dom.NewText("#tag"))
	r.AppendChild(w)
	c.Store(r, Compute(r), 1)
	assert.False(t, c.ShouldReprocess(r, false))

	// Host re-renders the same text without our span.
	r.RemoveChild(w)
	r.AppendChild(dom.NewText("#tag"))
	assert.True(t, c.ShouldReprocess(r, false))
}

func TestCache_ShouldSkip(t *testing.T) {
	c := New()
	plain := row("no tags here")
	tagged := row("a #tag")

	assert.False(t, c.ShouldSkip(plain), "never processed")
	c.Store(plain, Compute(plain), 0)
	c.Store(tagged, Compute(tagged), 1)
	assert.True(t, c.ShouldSkip(plain))
	assert.False(t, c.ShouldSkip(tagged))
}

func TestCache_ForgetAndReset(t *testing.T) {
	c := New()
	a, b := row("a"), row("b")
	c.Store(a, Compute(a), 0)
	c.Store(b, Compute(b), 0)
	assert.Equal(t, 2, c.Len())

	hash, ok := c.Fingerprint(a)
	assert.True(t, ok)
	assert.Equal(t, Compute(a).Hash(), hash)

	c.Forget(a)
	assert.False(t, c.Processed(a))
	assert.Equal(t, 1, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
}
