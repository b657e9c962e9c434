package domain

// DefaultAgendaDays is the agenda window length used until the user picks
// another one.
const DefaultAgendaDays = 7

// Settings represents user configurable options.
type Settings struct {
	AgendaDays       int    `json:"agendaDays"`
	ActiveCategoryID string `json:"activeCategoryId,omitempty"`
}

// ValidAgendaDays reports whether n is one of the supported agenda window
// lengths.
func ValidAgendaDays(n int) bool {
	switch n {
	case 7, 15, 30:
		return true
	}
	return false
}
