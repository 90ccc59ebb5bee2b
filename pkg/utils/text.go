package utils

// Truncate returns at most limit runes of s. A non-positive limit returns s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// SplitRunes cuts s into chunks of at most limit runes each.
func SplitRunes(s string, limit int) []string {
	if limit <= 0 || s == "" {
		return []string{s}
	}
	runes := []rune(s)
	var chunks []string
	for len(runes) > 0 {
		end := limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[:end]))
		runes = runes[end:]
	}
	return chunks
}
