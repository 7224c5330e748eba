package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Phase tags the page a property fragment originates from
type Phase string

const (
	PhaseGas    Phase = "gas"    // Gas phase thermochemistry page
	PhaseLiquid Phase = "liquid" // Condensed phase thermochemistry page
	PhaseChange Phase = ""       // Phase change page, properties are unqualified
)

// Title returns the phase name as it appears in table captions ("Gas", "Liquid")
func (p Phase) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// Qualify appends the phase to a field name ("entropy" -> "entropy_gas").
// The phase change page leaves names unqualified.
func (p Phase) Qualify(field string) string {
	if p == PhaseChange {
		return field
	}
	return field + "_" + string(p)
}

// Identity holds the substance fields captured from the root page
type Identity struct {
	Name            string  `json:"name"`
	CAS             int64   `json:"cas"`                          // CAS registry number without dashes
	Formula         string  `json:"formula,omitempty"`            // e.g. "CH4"
	MolecularWeight float64 `json:"molecular_weight,omitempty"`   // g/mol
	InChI           string  `json:"iupac_std_inchi,omitempty"`    // IUPAC Standard InChI
	InChIKey        string  `json:"iupac_std_inchikey,omitempty"` // IUPAC Standard InChIKey
	Image           string  `json:"image,omitempty"`              // Absolute structure image URL
}

// identityKeys are the JSON names reserved by Identity
var identityKeys = map[string]bool{
	"name":               true,
	"cas":                true,
	"formula":            true,
	"molecular_weight":   true,
	"iupac_std_inchi":    true,
	"iupac_std_inchikey": true,
	"image":              true,
}

// IsIdentityKey reports whether key names an Identity field
func IsIdentityKey(key string) bool {
	return identityKeys[key]
}

// Substance is the finalized record of one substance walk.
// It is never mutated after the walker emits it.
type Substance struct {
	Identity
	Properties map[string]Property
}

// HasImage reports whether the record carries a structure image
func (s *Substance) HasImage() bool {
	return s.Image != ""
}

// FieldNames returns every populated field name, sorted
func (s *Substance) FieldNames() []string {
	fields, _ := s.flatten()
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON encodes the substance as one flat object with sorted keys
func (s Substance) MarshalJSON() ([]byte, error) {
	fields, err := s.flatten()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func (s Substance) flatten() (map[string]any, error) {
	raw, err := json.Marshal(s.Identity)
	if err != nil {
		return nil, fmt.Errorf("marshal identity: %w", err)
	}

	fields := make(map[string]any, len(s.Properties)+len(identityKeys))
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("flatten identity: %w", err)
	}

	for key, prop := range s.Properties {
		if IsIdentityKey(key) {
			continue
		}
		fields[key] = prop
	}
	return fields, nil
}
