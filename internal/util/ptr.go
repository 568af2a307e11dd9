package util

// Ptr materializes a literal as a pointer, mostly for the nullable
// job and run columns that model SQL NULL as *T.
func Ptr[T any](v T) *T {
	return &v
}
