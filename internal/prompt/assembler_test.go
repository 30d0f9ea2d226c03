package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildIsPure(t *testing.T) {
	g := Grounding{Passages: []string{"The pool opens at 9am.", "Pets are welcome."}}
	a := Build("Is there a pool?", g)
	b := Build("Is there a pool?", g)
	require.Equal(t, a, b)
}

func TestBuildNumbersPassages(t *testing.T) {
	g := Grounding{Passages: []string{"one", "two"}}
	out := Build("q", g)
	require.Contains(t, out, "PASSAGE 1: one")
	require.Contains(t, out, "PASSAGE 2: two")
	require.Contains(t, out, "Question: q")
}

func TestBuildEscapesDelimiters(t *testing.T) {
	g := Grounding{Passages: []string{"line one\nline two with \"quotes\" and 'more' and ```fence```"}}
	out := Build("q", g)
	// The fenced block must contain exactly one opening and one closing fence.
	require.Equal(t, 2, strings.Count(out, "```"))
	require.NotContains(t, out, `"quotes"`)
	require.NotContains(t, out, "'more'")
	require.Contains(t, out, "line one line two")
}

func TestBuildIncludesFallbackInstruction(t *testing.T) {
	out := Build("q", Grounding{Blob: "context"})
	require.Contains(t, out, FallbackAnswer)
}

func TestBuildIncludesAvailabilityRule(t *testing.T) {
	out := Build("q", Grounding{Blob: "context"})
	require.Contains(t, out, "subject to availability")
	require.Contains(t, out, "extra fee")
}

func TestBuildBlobGrounding(t *testing.T) {
	out := Build("q", Grounding{Blob: "Check-in: 3pm\nCheck-out: 11am"})
	require.NotContains(t, out, "PASSAGE")
	require.Contains(t, out, "Check-in: 3pm Check-out: 11am")
}
