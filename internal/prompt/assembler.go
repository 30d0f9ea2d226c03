package prompt

import (
	"fmt"
	"strings"

	"staychat/internal/domain"
)

// FallbackAnswer is the exact sentence the model is told to use when
// the grounding does not contain the answer.
const FallbackAnswer = "Unfortunately I am not aware how to answer that question. Can you try framing it in a different way?"

// Grounding is the property-specific text the prompt is built around.
// Passages wins when non-empty; Blob is used verbatim otherwise.
type Grounding struct {
	Passages []string
	Blob     string
}

// escaper strips characters that would let grounding text break out of
// the prompt's delimiter convention.
var escaper = strings.NewReplacer(`"`, "", "'", "", "`", "", "\r", " ", "\n", " ")

// Build assembles the grounded prompt for one question. It is a pure
// function: identical inputs produce byte-identical output.
func Build(question string, g Grounding) string {
	var block strings.Builder
	if len(g.Passages) > 0 {
		for i, p := range g.Passages {
			if i > 0 {
				block.WriteString("\n\n")
			}
			fmt.Fprintf(&block, "PASSAGE %d: %s", i+1, escaper.Replace(p))
		}
	} else {
		block.WriteString(escaper.Replace(g.Blob))
	}

	var b strings.Builder
	b.WriteString("You are an advanced language model designed to assist with inquiries about rental properties. ")
	b.WriteString("Your responses should be formal, detailed, and conversational, resembling how a kind and helpful person would converse. ")
	b.WriteString("Use the provided information to answer any questions as accurately as possible. The information is given in triple backticks.\n")
	b.WriteString("If you are asked about check-in or check-out, also mention that early check-in and late check-out are subject to availability and an extra fee.\n")
	b.WriteString("If the question asks about places, businesses, or attractions near the property and the provided information does not answer it, ")
	b.WriteString("reply with exactly " + domain.NearbyMarker + ",<category> where <category> is a single search term such as restaurant or pool, and nothing else.\n")
	b.WriteString(`If you don't have the answer, please say: "` + FallbackAnswer + `"` + "\n")
	b.WriteString("```\n")
	b.WriteString(block.String())
	b.WriteString("\n```\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}
