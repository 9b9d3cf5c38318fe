// Package settings holds the user configuration, its persisted form and the
// small form the host shows to edit it.
//
// Values are never rejected. Anything that cannot be used as-is (an empty
// class name, a margin that is not a number) falls back to its default where
// it is read.
package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hnimtadd/searchtag/decorator/grammar"
)

const (
	KeyWrapperClass = "wrapperClass"
	KeyHideInSearch = "hideInSearch"
	KeyWrapAheadPx  = "wrapAheadPx"
	KeyASCIIOnly    = "asciiOnly"
)

const (
	DefaultWrapperClass = "search-tag"
	DefaultWrapAheadPx  = 128
)

type Settings struct {
	// Style class added to every tag boundary next to the internal marker.
	WrapperClass string `toml:"wrapperClass"`
	// Hide tag boundaries inside search panels.
	HideInSearch bool `toml:"hideInSearch"`
	// How far outside the viewport, in pixels, rows are decorated ahead of
	// being scrolled into view.
	WrapAheadPx int `toml:"wrapAheadPx"`
	// Only ASCII letters and digits count as tag characters.
	ASCIIOnly bool `toml:"asciiOnly"`
}

func Defaults() Settings {
	return Settings{
		WrapperClass: DefaultWrapperClass,
		WrapAheadPx:  DefaultWrapAheadPx,
	}
}

// Class returns the style class to use. Only the first whitespace separated
// word is kept since a boundary takes a single user class.
func (s Settings) Class() string {
	fields := strings.Fields(s.WrapperClass)
	if len(fields) == 0 {
		return DefaultWrapperClass
	}
	return fields[0]
}

// Margin returns the lookahead margin in pixels.
func (s Settings) Margin() int {
	if s.WrapAheadPx < 0 {
		return DefaultWrapAheadPx
	}
	return s.WrapAheadPx
}

func (s Settings) Grammar() grammar.Grammar {
	if s.ASCIIOnly {
		return grammar.New(grammar.ModeASCII)
	}
	return grammar.Default
}

// Normalized returns a copy with every field replaced by the value actually
// in effect.
func (s Settings) Normalized() Settings {
	s.WrapperClass = s.Class()
	s.WrapAheadPx = s.Margin()
	return s
}

// Equal reports whether s and o have the same effective values.
func (s Settings) Equal(o Settings) bool {
	return s.Normalized() == o.Normalized()
}

// FromMap builds Settings from a decoded key/value blob. Unknown keys are
// ignored and badly typed values fall back to defaults.
func FromMap(m map[string]any) Settings {
	s := Defaults()
	if v, ok := m[KeyWrapperClass]; ok {
		s.WrapperClass = coerceString(v, DefaultWrapperClass)
	}
	if v, ok := m[KeyHideInSearch]; ok {
		s.HideInSearch = coerceBool(v, false)
	}
	if v, ok := m[KeyWrapAheadPx]; ok {
		s.WrapAheadPx = coerceInt(v, DefaultWrapAheadPx)
	}
	if v, ok := m[KeyASCIIOnly]; ok {
		s.ASCIIOnly = coerceBool(v, false)
	}
	return s
}

// ToMap is the inverse of FromMap.
func (s Settings) ToMap() map[string]any {
	return map[string]any{
		KeyWrapperClass: s.WrapperClass,
		KeyHideInSearch: s.HideInSearch,
		KeyWrapAheadPx:  int64(s.WrapAheadPx),
		KeyASCIIOnly:    s.ASCIIOnly,
	}
}

func coerceString(v any, fallback string) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fallback
	}
}

func coerceBool(v any, fallback bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	case int64:
		return t != 0
	}
	return fallback
}

func coerceInt(v any, fallback int) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		if t > math.MaxInt32 || t < math.MinInt32 {
			return fallback
		}
		return int(t)
	case float64:
		if math.IsNaN(t) || t > math.MaxInt32 || t < math.MinInt32 {
			return fallback
		}
		return int(t)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(t), "px")
		if n, err := strconv.Atoi(strings.TrimSpace(trimmed)); err == nil {
			return n
		}
	}
	return fallback
}
