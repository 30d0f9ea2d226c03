package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"staychat/internal/domain"
)

// Catalog holds every selectable property, loaded once at startup and
// read-only afterwards.
type Catalog struct {
	properties []domain.Property
	byID       map[string]int
	dimension  int
}

// propertyFile mirrors the JSON layout written by the offline indexing job.
type propertyFile struct {
	Properties []struct {
		ID        string  `json:"id"`
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Records   []struct {
			Label     string    `json:"label"`
			Text      string    `json:"text"`
			Embedding []float64 `json:"embedding"`
		} `json:"records,omitempty"`
		Context string   `json:"context,omitempty"`
		Details *details `json:"details,omitempty"`
	} `json:"properties"`
}

type details struct {
	Amenities []string `json:"amenities,omitempty"`
	CheckIn   string   `json:"check_in,omitempty"`
	CheckOut  string   `json:"check_out,omitempty"`
	Policies  []string `json:"policies,omitempty"`
}

// Load reads the property data file and builds a validated catalog.
// wantDim pins the expected embedding dimension; pass 0 to adopt the
// first record's dimension. Any malformed property or dimension
// mismatch is an error: the caller treats it as fatal at startup.
func Load(path string, wantDim int) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read property data: %w", err)
	}
	var file propertyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse property data %s: %w", path, err)
	}
	props := make([]domain.Property, 0, len(file.Properties))
	for _, raw := range file.Properties {
		prop := domain.Property{
			ID:        raw.ID,
			Name:      raw.Name,
			Latitude:  raw.Latitude,
			Longitude: raw.Longitude,
			Blob:      buildBlob(raw.Context, raw.Details),
		}
		for _, rec := range raw.Records {
			prop.Records = append(prop.Records, domain.KnowledgeRecord{
				PropertyID: raw.ID,
				Label:      rec.Label,
				Text:       rec.Text,
				Embedding:  rec.Embedding,
			})
		}
		props = append(props, prop)
	}
	return NewCatalog(props, wantDim)
}

// NewCatalog validates properties and builds the catalog. Every
// property must have an id, a name, and at least one grounding source;
// every record embedding must share one dimension.
func NewCatalog(props []domain.Property, wantDim int) (*Catalog, error) {
	if len(props) == 0 {
		return nil, fmt.Errorf("no properties defined")
	}
	cat := &Catalog{byID: make(map[string]int, len(props)), dimension: wantDim}
	for _, prop := range props {
		if prop.ID == "" || prop.Name == "" {
			return nil, fmt.Errorf("property missing id or name")
		}
		if _, dup := cat.byID[prop.ID]; dup {
			return nil, fmt.Errorf("duplicate property id %q", prop.ID)
		}
		for i, rec := range prop.Records {
			if strings.TrimSpace(rec.Text) == "" {
				return nil, fmt.Errorf("property %q: record %d has empty text", prop.ID, i)
			}
			if cat.dimension == 0 {
				cat.dimension = len(rec.Embedding)
			}
			if len(rec.Embedding) != cat.dimension {
				return nil, fmt.Errorf("property %q: record %d embedding dimension %d, want %d",
					prop.ID, i, len(rec.Embedding), cat.dimension)
			}
		}
		if !prop.HasRecords() && strings.TrimSpace(prop.Blob) == "" {
			return nil, fmt.Errorf("property %q has neither records nor context", prop.ID)
		}
		cat.byID[prop.ID] = len(cat.properties)
		cat.properties = append(cat.properties, prop)
	}
	return cat, nil
}

// Properties returns all properties in file order.
func (c *Catalog) Properties() []domain.Property { return c.properties }

// Get returns the property with the given id.
func (c *Catalog) Get(id string) (domain.Property, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Property{}, false
	}
	return c.properties[i], true
}

// Dimension returns the embedding dimension shared by every record, or
// zero when no property carries records.
func (c *Catalog) Dimension() int { return c.dimension }

// buildBlob folds the freeform context and any structured details into
// one grounding text block.
func buildBlob(context string, d *details) string {
	var b strings.Builder
	if s := strings.TrimSpace(context); s != "" {
		b.WriteString(s)
	}
	if d == nil {
		return b.String()
	}
	writeLine := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
	}
	writeLine("Amenities", strings.Join(d.Amenities, ", "))
	writeLine("Check-in", d.CheckIn)
	writeLine("Check-out", d.CheckOut)
	writeLine("Policies", strings.Join(d.Policies, "; "))
	return b.String()
}
