package validators

import (
	"strings"
	"unicode"
)

// SanitizeString collapses whitespace runs, drops control characters and cuts
// the result to maxLen runes. A maxLen of zero leaves the length alone.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))

	runes := 0
	pendingSpace := false
	for _, r := range input {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if pendingSpace {
			if maxLen > 0 && runes+1 >= maxLen {
				break
			}
			b.WriteByte(' ')
			runes++
			pendingSpace = false
		}
		if maxLen > 0 && runes >= maxLen {
			break
		}
		b.WriteRune(r)
		runes++
	}
	return b.String()
}
