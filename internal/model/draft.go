package model

// Style is the tone requested for a generated reply.
type Style string

const (
	StyleFormal   Style = "formal"
	StyleSimple   Style = "simple"
	StyleFriendly Style = "friendly"
)

// IsValid checks if the style is recognized.
func (s Style) IsValid() bool {
	switch s {
	case StyleFormal, StyleSimple, StyleFriendly:
		return true
	}
	return false
}

// ParseStyle maps a config value to a Style, defaulting to formal.
func ParseStyle(label string) Style {
	s := Style(label)
	if s.IsValid() {
		return s
	}
	return StyleFormal
}

// Draft is a reply text with its style tag. Correction replaces a Draft
// with a new one; a Draft is never edited in place.
type Draft struct {
	Text  string `json:"text"`
	Style Style  `json:"style"`
}
