package dom

import "golang.org/x/net/html"

const (
	// WrapperClass marks every boundary this package family inserts. The
	// user-facing style class is added next to it.
	WrapperClass = "sst-tag"

	// Boundaries written by earlier releases.
	LegacyWrapperClass = "search-tag-wrap"
	LegacyWrapperAttr  = "data-search-tag"

	// HighlightClass is the host's own decoration around text that matched
	// the search query.
	HighlightClass = "search-result-file-matched-text"
)

// IsWrapBoundary reports whether n is a current or legacy tag boundary.
func IsWrapBoundary(n *html.Node) bool {
	if !IsElement(n) {
		return false
	}
	return HasClass(n, WrapperClass) ||
		HasClass(n, LegacyWrapperClass) ||
		HasAttr(n, LegacyWrapperAttr)
}

// InWrapBoundary reports whether n sits inside a boundary below root.
func InWrapBoundary(root, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if IsWrapBoundary(p) {
			return true
		}
		if p == root {
			return false
		}
	}
	return false
}
