// Package grammar defines which characters make up a tag and which characters
// may sit on either side of one.
//
// A tag is a '#' followed by one or more tag characters, at least one of which
// is a letter or digit. The '#' must follow a boundary character (or the start
// of content, or the end of a previous tag) and the run must be followed by a
// boundary character or the end of content.
package grammar

import (
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// Trigger is the character that opens a tag.
const Trigger = '#'

type Mode int

const (
	// Letters and digits from any script are tag characters.
	ModeUnicode Mode = iota
	// Only [A-Za-z0-9] plus the punctuation tag characters.
	ModeASCII
)

func (m Mode) String() string {
	switch m {
	case ModeUnicode:
		return "unicode"
	case ModeASCII:
		return "ascii"
	default:
		return "unknown"
	}
}

// ASCII symbols and quotes that may terminate or precede a tag. White space
// and the rest of Unicode punctuation are checked in IsBoundary.
var boundaries = rangetable.New(
	'.', ',', ';', ':', '!', '?',
	'(', ')', '[', ']', '{', '}', '<', '>',
	'"', '\'', '`',
	'“', '”', '‘', '’', '«', '»',
	'|', '*', '~', '=', '+', '&', '^', '%', '$', '@', '\\',
	Trigger,
)

type Grammar struct {
	mode Mode
}

func New(mode Mode) Grammar {
	return Grammar{mode: mode}
}

// Default is the unicode-aware grammar.
var Default = New(ModeUnicode)

func (g Grammar) Mode() Mode {
	return g.mode
}

// IsTagChar reports whether r may appear after the '#' of a tag.
func (g Grammar) IsTagChar(r rune) bool {
	if isTagPunct(r) || g.IsAlnum(r) {
		return true
	}
	// Combining marks belong to the letter before them.
	return g.mode == ModeUnicode && unicode.Is(unicode.Mn, r)
}

// IsAlnum reports whether r is a letter or digit under the grammar's mode.
func (g Grammar) IsAlnum(r rune) bool {
	if g.mode == ModeASCII {
		return r < unicode.MaxASCII &&
			('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsBoundary reports whether r can sit next to a tag. ok=false means there is
// no character at all (start or end of content), which always counts.
func IsBoundary(r rune, ok bool) bool {
	if !ok || r == 0 {
		return true
	}
	return unicode.IsSpace(r) || unicode.Is(boundaries, r) ||
		unicode.IsPunct(r) && !isTagPunct(r)
}

// isTagPunct reports the punctuation allowed inside a tag. It never counts as
// a boundary, so "a-#b" and "x/#y" stay plain text.
func isTagPunct(r rune) bool {
	return r == '_' || r == '/' || r == '-'
}
