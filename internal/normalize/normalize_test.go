// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	assert.Equal(t, "bbc one", Token("  BBC One\u200B "))
	assert.Equal(t, "", Token("\uFEFF"))
}

func TestPolicy_Key(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		a, b   string
		equal  bool
	}{
		{"insensitive ascii", CaseInsensitive, "BBC1.uk", "bbc1.UK", true},
		{"insensitive german sharp s", CaseInsensitive, "Straße", "STRASSE", true},
		{"insensitive composed vs decomposed", CaseInsensitive, "Cafe\u0301", "CAF\u00c9", true},
		{"exact differs by case", Exact, "BBC1.uk", "bbc1.uk", false},
		{"exact same", Exact, "BBC1.uk", "BBC1.uk", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.policy.Equal(tt.a, tt.b))
		})
	}
}

func TestPolicy_Render(t *testing.T) {
	assert.Equal(t, "bbc1.uk", CaseInsensitive.Render("BBC1.uk"))
	assert.Equal(t, "BBC1.uk", Exact.Render("BBC1.uk"))

	// Identifiers that compare equal render identically.
	for _, pair := range [][2]string{
		{"Stra\u00dfe.de", "STRASSE.de"},
		{"Cafe\u0301.fr", "CAF\u00c9.fr"},
		{"\u039f\u0394\u039f\u03a3", "\u03bf\u03b4\u03bf\u03c2"},
	} {
		require.True(t, CaseInsensitive.Equal(pair[0], pair[1]))
		assert.Equal(t, CaseInsensitive.Render(pair[0]), CaseInsensitive.Render(pair[1]), "%q vs %q", pair[0], pair[1])
	}
}

func TestGroup(t *testing.T) {
	assert.Equal(t, Group("Sports"), Group("  SPORTS "))
	assert.NotEqual(t, Group("Sports"), Group("Sport"))
}
