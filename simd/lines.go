package simd

// CountLines returns the number of newline ('\n') bytes in haystack.
//
// Lexers use this to maintain line numbers across matched spans without
// re-scanning: the matcher counts newlines once per consumed window. Each
// 8-byte lane contributes its matches via a single popcount.
func CountLines(haystack []byte) int {
	return countByteSWAR(haystack, '\n')
}
