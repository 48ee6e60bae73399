package pagination

// Page is the result of a keyset-paginated query. NextCursor is the
// zero value when the listing is exhausted.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// Cut trims a limit+1 result set down to a page. The query fetches one
// row past the requested limit; if that overflow row exists it is not
// returned, its id becomes the cursor that starts the next page.
func Cut[T any](items []T, limit int, cursorOf func(T) string) Page[T] {
	if len(items) <= limit {
		return Page[T]{Items: items}
	}
	return Page[T]{
		Items:      items[:limit],
		NextCursor: cursorOf(items[limit]),
	}
}

// Clamp normalizes a client-supplied page size to [1, max], applying
// def when it is unset or negative.
func Clamp(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
