package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrammar_IsTagChar(t *testing.T) {
	tcs := []struct {
		name    string
		r       rune
		unicode bool
		ascii   bool
	}{
		{name: "lower", r: 'a', unicode: true, ascii: true},
		{name: "digit", r: '7', unicode: true, ascii: true},
		{name: "underscore", r: '_', unicode: true, ascii: true},
		{name: "slash", r: '/', unicode: true, ascii: true},
		{name: "hyphen", r: '-', unicode: true, ascii: true},
		{name: "accented", r: 'é', unicode: true, ascii: false},
		{name: "cjk", r: '漢', unicode: true, ascii: false},
		{name: "combining acute", r: '\u0301', unicode: true, ascii: false},
		{name: "space", r: ' ', unicode: false, ascii: false},
		{name: "hash", r: '#', unicode: false, ascii: false},
		{name: "dot", r: '.', unicode: false, ascii: false},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.unicode, New(ModeUnicode).IsTagChar(tc.r))
			assert.Equal(t, tc.ascii, New(ModeASCII).IsTagChar(tc.r))
		})
	}
}

func TestGrammar_IsAlnum(t *testing.T) {
	assert.True(t, Default.IsAlnum('x'))
	assert.True(t, Default.IsAlnum('٣'))
	assert.False(t, Default.IsAlnum('-'))
	assert.False(t, Default.IsAlnum('_'))
	assert.False(t, New(ModeASCII).IsAlnum('ß'))
}

func TestIsBoundary(t *testing.T) {
	assert.True(t, IsBoundary(0, false), "absence is a boundary")
	for _, r := range " \t\n .,;:!?()[]{}<>\"'`“”‘’«»|#" {
		assert.True(t, IsBoundary(r, true), "%q should be a boundary", r)
	}
	for _, r := range "…—–¡¿·、。§" {
		assert.True(t, IsBoundary(r, true), "%q should be a boundary", r)
	}
	for _, r := range "a1_/-é€©" {
		assert.False(t, IsBoundary(r, true), "%q should not be a boundary", r)
	}
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "unicode", ModeUnicode.String())
	assert.Equal(t, "ascii", ModeASCII.String())
}
