// Package shelter assigns shelters their spreadsheet-style display codes
// (A..Z, AA, AB, ...) and caches the shelter list.
package shelter

// Code renders n (1-based) in bijective base-26: 1 is "A", 26 is "Z", 27 is "AA".
// It returns "" for n < 1.
func Code(n int) string {
	if n < 1 {
		return ""
	}
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// Ordinal is the inverse of Code. It reports false for anything that is not
// a non-empty run of upper-case letters.
func Ordinal(code string) (int, bool) {
	if code == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c < 'A' || c > 'Z' {
			return 0, false
		}
		n = n*26 + int(c-'A') + 1
	}
	return n, true
}

// NextCode returns the code following the highest valid code in existing.
// Gaps left by deleted shelters are never reused.
func NextCode(existing []string) string {
	highest := 0
	for _, c := range existing {
		if n, ok := Ordinal(c); ok && n > highest {
			highest = n
		}
	}
	return Code(highest + 1)
}
