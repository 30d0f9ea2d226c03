package dispatch

import (
	"strings"

	"staychat/internal/domain"
)

// Parser classifies raw model output into a ToolDirective. It is purely
// syntactic: no network calls, deterministic, and it never fails —
// anything it cannot classify is a final answer.
type Parser struct {
	aliases map[string]string
}

// NewParser creates a parser with a category alias table mapping
// unsupported category synonyms to supported ones. Keys and values are
// compared lower-cased; a nil table is valid.
func NewParser(aliases map[string]string) *Parser {
	normalized := make(map[string]string, len(aliases))
	for k, v := range aliases {
		normalized[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return &Parser{aliases: normalized}
}

// Parse interprets raw model output. Output starting with the nearby
// marker and a comma becomes a PlacesLookup directive with the category
// trimmed, lower-cased, and remapped through the alias table. Anything
// else, including a marker with an empty category, is a FinalAnswer
// with the text retained verbatim.
func (p *Parser) Parse(raw string) domain.ToolDirective {
	trimmed := strings.TrimSpace(raw)
	rest, ok := strings.CutPrefix(trimmed, domain.NearbyMarker+",")
	if !ok {
		return domain.ToolDirective{Command: domain.FinalAnswer, Answer: raw}
	}
	category := strings.ToLower(strings.TrimSpace(rest))
	if category == "" {
		return domain.ToolDirective{Command: domain.FinalAnswer, Answer: raw}
	}
	if mapped, ok := p.aliases[category]; ok {
		category = mapped
	}
	return domain.ToolDirective{Command: domain.PlacesLookup, Category: category}
}
