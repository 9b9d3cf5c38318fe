package settings

import (
	"fmt"
	"strconv"

	"github.com/hnimtadd/searchtag/logger"
)

type ControlKind int

const (
	ControlText ControlKind = iota
	ControlToggle
)

// Control is one row of the settings panel.
type Control struct {
	Key         string
	Kind        ControlKind
	Label       string
	Description string
	Value       string
}

// Form backs the host's settings panel. Every change is coerced, persisted
// and then handed to onChange, which rebinds the panels.
type Form struct {
	store    Store
	current  Settings
	onChange func(Settings)
	logger   logger.Logger
}

func NewForm(store Store, current Settings, onChange func(Settings), l logger.Logger) *Form {
	return &Form{
		store:    store,
		current:  current,
		onChange: onChange,
		logger:   logger.OrDefault(l),
	}
}

func (f *Form) Current() Settings {
	return f.current
}

// Update replaces the values the form shows and edits, for changes that did
// not come through Set.
func (f *Form) Update(s Settings) {
	f.current = s
}

func (f *Form) Controls() []Control {
	s := f.current
	return []Control{
		{
			Key:         KeyWrapperClass,
			Kind:        ControlText,
			Label:       "Tag class",
			Description: "CSS class added to every tag found in search results.",
			Value:       s.WrapperClass,
		},
		{
			Key:         KeyWrapAheadPx,
			Kind:        ControlText,
			Label:       "Wrap ahead (px)",
			Description: "Decorate rows this far outside the visible area before they scroll in.",
			Value:       strconv.Itoa(s.WrapAheadPx),
		},
		{
			Key:         KeyHideInSearch,
			Kind:        ControlToggle,
			Label:       "Hide tags in search",
			Description: "Hide the decorated tags inside search panels.",
			Value:       strconv.FormatBool(s.HideInSearch),
		},
		{
			Key:         KeyASCIIOnly,
			Kind:        ControlToggle,
			Label:       "ASCII tags only",
			Description: "Treat only ASCII letters and digits as tag characters.",
			Value:       strconv.FormatBool(s.ASCIIOnly),
		},
	}
}

// Set applies a raw control value. Values that cannot be used fall back to
// the default for that key; only unknown keys and storage failures error.
// The change callback runs even when saving fails, so the session reflects
// what the user typed.
func (f *Form) Set(key, raw string) error {
	switch key {
	case KeyWrapperClass, KeyHideInSearch, KeyWrapAheadPx, KeyASCIIOnly:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	m := f.current.ToMap()
	m[key] = raw
	f.current = FromMap(m)

	err := Save(f.store, f.current)
	if err != nil {
		f.logger.Warn("settings not persisted", "key", key, "err", err)
	}
	if f.onChange != nil {
		f.onChange(f.current)
	}
	return err
}
