package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"staychat/internal/domain"
)

func TestParseNearbyDirective(t *testing.T) {
	p := NewParser(nil)
	d := p.Parse("NEARBY_SEARCH,restaurant")
	require.Equal(t, domain.PlacesLookup, d.Command)
	require.Equal(t, "restaurant", d.Category)
}

func TestParseTrimsAndLowercasesCategory(t *testing.T) {
	p := NewParser(nil)
	d := p.Parse("  NEARBY_SEARCH,  Coffee Shop  ")
	require.Equal(t, domain.PlacesLookup, d.Command)
	require.Equal(t, "coffee shop", d.Category)
}

func TestParseRemapsAliases(t *testing.T) {
	p := NewParser(map[string]string{"Gardens": "garden"})
	d := p.Parse("NEARBY_SEARCH,Gardens")
	require.Equal(t, domain.PlacesLookup, d.Command)
	require.Equal(t, "garden", d.Category)
}

func TestParsePlainAnswer(t *testing.T) {
	p := NewParser(nil)
	raw := "The check-in time is 3pm."
	d := p.Parse(raw)
	require.Equal(t, domain.FinalAnswer, d.Command)
	require.Equal(t, raw, d.Answer)
}

func TestParseMarkerWithoutCategoryIsFinalAnswer(t *testing.T) {
	p := NewParser(nil)
	for _, raw := range []string{"NEARBY_SEARCH,", "NEARBY_SEARCH,   ", "NEARBY_SEARCH"} {
		d := p.Parse(raw)
		require.Equal(t, domain.FinalAnswer, d.Command, "input %q", raw)
		require.Equal(t, raw, d.Answer)
	}
}

func TestParseMarkerMidTextIsFinalAnswer(t *testing.T) {
	p := NewParser(nil)
	raw := "You could try NEARBY_SEARCH,pool if you like."
	d := p.Parse(raw)
	require.Equal(t, domain.FinalAnswer, d.Command)
	require.Equal(t, raw, d.Answer)
}
