package enums

import "fmt"

// SearchType selects which collection a search query scans.
type SearchType string

const (
	SearchTypeProducts SearchType = "products"
	SearchTypePosts    SearchType = "posts"
)

var validSearchTypes = []SearchType{
	SearchTypeProducts,
	SearchTypePosts,
}

// IsValid reports whether the value is a known SearchType.
func (s SearchType) IsValid() bool {
	for _, candidate := range validSearchTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSearchType converts raw input into a SearchType.
func ParseSearchType(value string) (SearchType, error) {
	for _, candidate := range validSearchTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid search type %q", value)
}
