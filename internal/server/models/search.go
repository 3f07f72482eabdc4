package models

// SearchKind tells how a search query is matched.
type SearchKind int

const (
	// SearchNone matches nothing.
	SearchNone SearchKind = iota
	// SearchTag matches questions with a tag name containing Tag.
	SearchTag
	// SearchText matches questions whose title or body contains any of Terms.
	SearchText
)

// SearchQuery is the parsed form of the user's search box input.
type SearchQuery struct {
	Kind  SearchKind
	Raw   string
	Tag   string
	Terms []string
}
