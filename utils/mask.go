package utils

// MaskSecret keeps the first and last four characters of long secrets so
// they can be correlated in logs without being usable.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 16:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "****"
	}
}
