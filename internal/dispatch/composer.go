package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"staychat/internal/domain"
	"staychat/internal/places"
)

// LookupFailedMessage is shown when the places lookup fails. The
// underlying error never reaches the user.
const LookupFailedMessage = "I'm having trouble looking up nearby places right now. Please try again in a moment."

// Composer turns a directive plus optional lookup results into the
// final user-facing reply.
type Composer struct {
	displayCap int
}

// NewComposer creates a composer that lists at most displayCap results.
func NewComposer(displayCap int) *Composer {
	if displayCap <= 0 {
		displayCap = 10
	}
	return &Composer{displayCap: displayCap}
}

// Compose builds the display text. For FinalAnswer the model's text
// passes through untouched; results and lookupErr are ignored. For
// PlacesLookup, lookupErr distinguishes "nothing found" from "service
// failed".
func (c *Composer) Compose(d domain.ToolDirective, results []domain.LookupResult, lookupErr error) string {
	if d.Command == domain.FinalAnswer {
		return d.Answer
	}
	switch {
	case errors.Is(lookupErr, places.ErrNoResults):
		return fmt.Sprintf("I could not find any nearby %s for this property.", d.Category)
	case lookupErr != nil:
		return LookupFailedMessage
	case len(results) == 0:
		return fmt.Sprintf("I could not find any nearby %s for this property.", d.Category)
	}
	if len(results) > c.displayCap {
		results = results[:c.displayCap]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here are some %s options near the property:\n", d.Category)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s", i+1, r.Name)
		if r.Vicinity != "" {
			fmt.Fprintf(&b, " (%s)", r.Vicinity)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
