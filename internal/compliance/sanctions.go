package compliance

import "strings"

// SanctionsList is a static screening list. A production deployment would
// refresh this from an external provider; here it is seeded with the demo
// entries shipped with existing deployments.
type SanctionsList struct {
	entries []SanctionEntry
}

// SanctionEntry matches on exact phone numbers or case-insensitive name
// substrings.
type SanctionEntry struct {
	PhoneNumbers []string `json:"phoneNumbers"`
	Names        []string `json:"names"`
}

func DefaultSanctionsList() *SanctionsList {
	return &SanctionsList{entries: []SanctionEntry{
		{PhoneNumbers: []string{"+1234567890"}, Names: []string{"John Doe"}},
		{PhoneNumbers: []string{"+1987654321"}, Names: []string{"Jane Smith"}},
	}}
}

func NewSanctionsList(entries []SanctionEntry) *SanctionsList {
	return &SanctionsList{entries: entries}
}

// Contains reports whether the identifier (phone number, or a display name
// when one is known) appears on the list.
func (s *SanctionsList) Contains(identifier string) bool {
	if identifier == "" {
		return false
	}
	lowered := strings.ToLower(identifier)
	for _, e := range s.entries {
		for _, p := range e.PhoneNumbers {
			if p == identifier {
				return true
			}
		}
		for _, n := range e.Names {
			if strings.Contains(lowered, strings.ToLower(n)) {
				return true
			}
		}
	}
	return false
}

func (s *SanctionsList) Len() int {
	return len(s.entries)
}
