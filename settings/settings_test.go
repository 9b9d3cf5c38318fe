package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hnimtadd/searchtag/decorator/grammar"
	"github.com/hnimtadd/searchtag/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_Coercion(t *testing.T) {
	tcs := []struct {
		name   string
		in     Settings
		class  string
		margin int
	}{
		{name: "defaults", in: Defaults(), class: "search-tag", margin: 128},
		{name: "empty class", in: Settings{WrapperClass: "", WrapAheadPx: 10}, class: "search-tag", margin: 10},
		{name: "blank class", in: Settings{WrapperClass: "   "}, class: "search-tag", margin: 0},
		{name: "two words", in: Settings{WrapperClass: " fancy tag "}, class: "fancy", margin: 0},
		{name: "negative margin", in: Settings{WrapperClass: "x", WrapAheadPx: -5}, class: "x", margin: 128},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.class, tc.in.Class())
			assert.Equal(t, tc.margin, tc.in.Margin())
		})
	}
}

func TestFromMap(t *testing.T) {
	tcs := []struct {
		name     string
		in       map[string]any
		expected Settings
	}{
		{
			name:     "empty",
			in:       map[string]any{},
			expected: Defaults(),
		},
		{
			name: "typed",
			in: map[string]any{
				KeyWrapperClass: "tag",
				KeyHideInSearch: true,
				KeyWrapAheadPx:  int64(64),
				KeyASCIIOnly:    true,
			},
			expected: Settings{WrapperClass: "tag", HideInSearch: true, WrapAheadPx: 64, ASCIIOnly: true},
		},
		{
			name: "strings",
			in: map[string]any{
				KeyHideInSearch: "true",
				KeyWrapAheadPx:  " 256px ",
			},
			expected: Settings{WrapperClass: DefaultWrapperClass, HideInSearch: true, WrapAheadPx: 256},
		},
		{
			name: "garbage",
			in: map[string]any{
				KeyWrapperClass: 12,
				KeyHideInSearch: "maybe",
				KeyWrapAheadPx:  "lots",
				"unknown":       "ignored",
			},
			expected: Defaults(),
		},
		{
			name:     "float margin",
			in:       map[string]any{KeyWrapAheadPx: 32.9},
			expected: Settings{WrapperClass: DefaultWrapperClass, WrapAheadPx: 32},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FromMap(tc.in))
		})
	}
}

func TestSettings_Grammar(t *testing.T) {
	assert.Equal(t, grammar.ModeUnicode, Defaults().Grammar().Mode())
	assert.Equal(t, grammar.ModeASCII, Settings{ASCIIOnly: true}.Grammar().Mode())
}

func TestSettings_Equal(t *testing.T) {
	a := Defaults()
	b := Settings{WrapperClass: "  ", WrapAheadPx: -1}
	assert.True(t, a.Equal(b), "same effective values")
	b.HideInSearch = true
	assert.False(t, a.Equal(b))
}

func TestEncodeDecode(t *testing.T) {
	s := Settings{WrapperClass: "tag", HideInSearch: true, WrapAheadPx: 40}
	data, err := Encode(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wrapperClass")
	assert.Contains(t, string(data), "tag")

	got, err := Decode("test", data)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	got, err = Decode("test", nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestDecode_ParseError(t *testing.T) {
	s, err := Decode("broken", []byte("wrapperClass = "))
	require.Error(t, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken", perr.Source)
	assert.Equal(t, Defaults(), s)
}

func TestDecode_TomlValues(t *testing.T) {
	s, err := Decode("test", []byte("wrapAheadPx = \"wide\"\nhideInSearch = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultWrapAheadPx, s.WrapAheadPx)
	assert.True(t, s.HideInSearch)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")
	store := NewFileStore(path)

	s, err := Load(store)
	require.NoError(t, err, "missing file reads as defaults")
	assert.Equal(t, Defaults(), s)

	want := Settings{WrapperClass: "x", WrapAheadPx: 1}
	require.NoError(t, Save(store, want))
	got, err := Load(store)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMemoryStore(t *testing.T) {
	store := &MemoryStore{}
	require.NoError(t, Save(store, Settings{WrapperClass: "m"}))
	got, err := Load(store)
	require.NoError(t, err)
	assert.Equal(t, "m", got.WrapperClass)
}

type failingStore struct{}

func (failingStore) Load() ([]byte, error) { return nil, errors.New("disk gone") }
func (failingStore) Save([]byte) error     { return errors.New("disk gone") }

func TestLoad_StoreError(t *testing.T) {
	s, err := Load(failingStore{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading settings")
	assert.Equal(t, Defaults(), s)
}

func TestForm(t *testing.T) {
	store := &MemoryStore{}
	var seen []Settings
	f := NewForm(store, Defaults(), func(s Settings) { seen = append(seen, s) }, logger.Discard)

	controls := f.Controls()
	require.Len(t, controls, 4)
	assert.Equal(t, KeyWrapperClass, controls[0].Key)
	assert.Equal(t, "search-tag", controls[0].Value)
	assert.Equal(t, ControlToggle, controls[2].Kind)

	require.NoError(t, f.Set(KeyHideInSearch, "true"))
	require.NoError(t, f.Set(KeyWrapAheadPx, "not a number"))
	require.NoError(t, f.Set(KeyWrapperClass, "mine"))

	require.Len(t, seen, 3)
	assert.True(t, seen[0].HideInSearch)
	assert.Equal(t, DefaultWrapAheadPx, seen[1].WrapAheadPx)
	assert.Equal(t, "mine", f.Current().WrapperClass)

	persisted, err := Load(store)
	require.NoError(t, err)
	assert.Equal(t, f.Current(), persisted)

	err = f.Set("colour", "red")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Len(t, seen, 3)
}

func TestForm_SaveFailureStillApplies(t *testing.T) {
	var seen Settings
	f := NewForm(failingStore{}, Defaults(), func(s Settings) { seen = s }, logger.Discard)
	err := f.Set(KeyWrapperClass, "kept")
	assert.Error(t, err)
	assert.Equal(t, "kept", seen.WrapperClass)
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("wrapperClass = 'a'\n"), 0o644))

	w, err := NewWatcher(path, logger.Discard)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, Save(NewFileStore(path), Settings{WrapperClass: "b", WrapAheadPx: 9}))

	select {
	case s := <-w.Changes():
		assert.Equal(t, "b", s.WrapperClass)
		assert.Equal(t, 9, s.WrapAheadPx)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	require.NoError(t, w.Close())
	// Drains anything still buffered and ends once the channel is closed.
	for range w.Changes() {
	}
}
