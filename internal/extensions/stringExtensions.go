package extensions

func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen || maxLen <= 3 {
		return s
	}

	return s[:maxLen-3] + "..."
}
