// Package rowcache remembers what each row looked like the last time it was
// decorated so unchanged rows can be skipped.
package rowcache

import (
	"fmt"
	"strings"

	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/decorator/grammar"
	"github.com/hnimtadd/searchtag/decorator/utils"
	"github.com/mitchellh/hashstructure/v2"
	"golang.org/x/net/html"
)

// Signature is a cheap fingerprint of a row's text. It can miss an edit that
// keeps both the length and the number of triggers (moving a '#' around), which
// is accepted: the next edit that changes either value catches up.
type Signature struct {
	Length   int
	Triggers int
}

func (s Signature) Hash() uint64 {
	hashed, err := hashstructure.Hash(s, hashstructure.FormatV2, nil)
	utils.Assert(err == nil, fmt.Sprintf("failed to hash signature: %v", err))
	return hashed
}

func (s Signature) String() string {
	return fmt.Sprintf("Signature{len=%d, triggers=%d}", s.Length, s.Triggers)
}

// Compute walks the text of row once.
func Compute(row *html.Node) Signature {
	var sig Signature
	for n := range dom.Walk(row) {
		if n.Type == html.TextNode {
			sig.Length += len(n.Data)
			sig.Triggers += strings.Count(n.Data, string(grammar.Trigger))
		}
	}
	return sig
}

type entry struct {
	// Only the fingerprint of the signature is kept.
	hash uint64

	// Number of boundaries the last pass created. If the host re-renders a
	// row with the same text, the signature still matches but the boundaries
	// are gone; this lets us notice.
	wrapped int
}

// Cache maps rows to the hash of their last signature. Entries exist only for rows that
// were fully processed, which doubles as the processed flag.
type Cache struct {
	entries map[*html.Node]entry
}

func New() *Cache {
	return &Cache{entries: make(map[*html.Node]entry)}
}

// Processed reports whether row has been fully processed at least once.
func (c *Cache) Processed(row *html.Node) bool {
	_, ok := c.entries[row]
	return ok
}

// ShouldSkip is the fast exit: the row was processed before and contains no
// trigger character at all, so there is nothing to wrap or unwrap.
func (c *Cache) ShouldSkip(row *html.Node) bool {
	if !c.Processed(row) {
		return false
	}
	for n := range dom.Walk(row) {
		if n.Type == html.TextNode && strings.IndexByte(n.Data, grammar.Trigger) >= 0 {
			return false
		}
	}
	return true
}

// ShouldReprocess reports whether row must go through a full pass.
func (c *Cache) ShouldReprocess(row *html.Node, forced bool) bool {
	if forced {
		return true
	}
	e, ok := c.entries[row]
	if !ok {
		return true
	}
	if e.hash != Compute(row).Hash() {
		return true
	}
	return e.wrapped > 0 && countBoundaries(row) != e.wrapped
}

// Store records the signature of a row that was just processed.
func (c *Cache) Store(row *html.Node, sig Signature, wrapped int) {
	c.entries[row] = entry{hash: sig.Hash(), wrapped: wrapped}
}

// Fingerprint returns the stored signature hash of row, if any.
func (c *Cache) Fingerprint(row *html.Node) (uint64, bool) {
	e, ok := c.entries[row]
	return e.hash, ok
}

func (c *Cache) Forget(row *html.Node) {
	delete(c.entries, row)
}

func (c *Cache) Reset() {
	clear(c.entries)
}

func (c *Cache) Len() int {
	return len(c.entries)
}

func countBoundaries(row *html.Node) int {
	count := 0
	for n := range dom.Walk(row) {
		if dom.IsWrapBoundary(n) {
			count++
		}
	}
	return count
}
