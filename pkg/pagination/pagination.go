// Package pagination normalizes caller-supplied result limits for the
// scan-sort-truncate queries over the key-value store.
package pagination

const (
	// DefaultLimit is the standard result count when a limit is not provided.
	DefaultLimit = 20
	// MaxLimit caps how many records any query can request.
	MaxLimit = 100
)

// NormalizeLimit enforces the default and maximum limits.
func NormalizeLimit(limit int) int {
	return NormalizeLimitWith(limit, DefaultLimit, MaxLimit)
}

// NormalizeLimitWith applies configured default and maximum limits, falling
// back to the package defaults when the configuration is zero-valued.
func NormalizeLimitWith(limit, def, max int) int {
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
