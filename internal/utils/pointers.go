package utils

// StringPtrOrNil returns nil for the empty string.
func StringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
