package api

// orEmpty keeps nil slices off the wire; the sync contract promises arrays
// that are always present.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
