package agent

import (
	"strings"
	"unicode"
)

// ExtractSymbol returns the first whitespace-delimited token whose letters,
// taken alone, are 1-5 characters long and all upper-case. "Buy AAPL now"
// yields "AAPL"; an all-lowercase sentence yields ok == false.
func ExtractSymbol(text string) (symbol string, ok bool) {
	for _, tok := range strings.Fields(text) {
		letters := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) {
				return r
			}
			return -1
		}, tok)
		n := len([]rune(letters))
		if n < 1 || n > 5 {
			continue
		}
		if strings.ToUpper(letters) == letters && strings.ToLower(letters) != letters {
			return letters, true
		}
	}
	return "", false
}
