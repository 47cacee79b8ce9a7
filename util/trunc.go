package util

// TruncateRight keeps the first len number of runes of text.
func TruncateRight(text string, len int) string {
	return TruncateRightWithSuffix(text, len, "")
}

// TruncateRightWithSuffix keeps the first len number of runes of text and only append the suffix if truncation happens.
func TruncateRightWithSuffix(text string, len int, suffix string) string {
	if len <= 0 {
		return suffix
	}

	n := 0
	for i := range text {
		if n == len {
			return text[:i] + suffix
		}

		n++
	}

	return text
}
