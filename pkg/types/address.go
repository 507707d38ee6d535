package types

import "strings"

// Address is the shipping destination captured at checkout. Stored as jsonb.
type Address struct {
	Name       string  `json:"name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Normalized returns a copy with whitespace trimmed and the country defaulted.
func (a Address) Normalized() Address {
	out := Address{
		Name:       strings.TrimSpace(a.Name),
		Line1:      strings.TrimSpace(a.Line1),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	if a.Line2 != nil {
		line2 := strings.TrimSpace(*a.Line2)
		if line2 != "" {
			out.Line2 = &line2
		}
	}
	if out.Country == "" {
		out.Country = "IN"
	}
	return out
}

// IsComplete reports whether every required field is present.
func (a Address) IsComplete() bool {
	return strings.TrimSpace(a.Name) != "" &&
		strings.TrimSpace(a.Line1) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.State) != "" &&
		strings.TrimSpace(a.PostalCode) != ""
}
