package domain

// KnowledgeRecord is a single labeled snippet of property knowledge with
// its precomputed embedding. Records are built offline by the indexing
// job and never change at runtime.
type KnowledgeRecord struct {
	PropertyID string
	Label      string
	Text       string
	Embedding  []float64
}

// Property is one selectable rental property. Exactly one grounding
// source is active: Records when present, otherwise Blob.
type Property struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Records   []KnowledgeRecord
	Blob      string
}

// HasRecords reports whether the retrieval path applies to this property.
func (p Property) HasRecords() bool { return len(p.Records) > 0 }

// SearchResult is a retrieved record with its similarity score.
type SearchResult struct {
	Record KnowledgeRecord
	Score  float64
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation transcript.
type Message struct {
	Role    Role
	Content string
}

// NearbyMarker is the reserved token the model emits, followed by a
// comma and a category, to request a nearby-places lookup. The prompt
// teaches it and the parser recognizes it; nothing else interprets it.
const NearbyMarker = "NEARBY_SEARCH"

// Command classifies the model's output for routing.
type Command int

const (
	// FinalAnswer means the output is the user-facing reply as-is.
	FinalAnswer Command = iota
	// PlacesLookup means the output requests a nearby-places search.
	PlacesLookup
)

// ToolDirective is the parsed form of raw model output. Category is set
// only for PlacesLookup; Answer holds the verbatim text for FinalAnswer.
type ToolDirective struct {
	Command  Command
	Category string
	Answer   string
}

// LookupResult is one nearby place in the lookup service's relevance order.
type LookupResult struct {
	Name     string
	Vicinity string
}
