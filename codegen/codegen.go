// Package codegen builds the human-readable codes printed on QR labels and receipts.
package codegen

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"
)

const (
	BorrowingPrefix = "PMJ"
	ItemPrefix      = "TKJ"

	borrowingDigits = 3
	abbrevLen       = 4
)

// BorrowingCode returns PMJ-<year>-<suffix>. The suffix has three digits for the first
// attempts and gains one digit for every attempt past the third, so retries after
// collisions draw from a wider space.
func BorrowingCode(now time.Time, attempt int) string {
	digits := borrowingDigits
	if attempt > 3 {
		digits += attempt - 3
	}
	limit := 1
	for range digits {
		limit *= 10
	}
	return fmt.Sprintf("%s-%d-%0*d", BorrowingPrefix, now.Year(), digits, rand.IntN(limit)) // nolint:gosec
}

// ItemCode derives TKJ-XXXX from the item name, appending -1, -2, ... until the
// code is not taken.
func ItemCode(name string, taken func(code string) bool) string {
	base := fmt.Sprintf("%s-%s", ItemPrefix, abbreviate(name))
	code := base
	for suffix := 1; taken(code); suffix++ {
		code = fmt.Sprintf("%s-%d", base, suffix)
	}
	return code
}

// abbreviate takes word initials, then fills up from the remaining letters of the name.
func abbreviate(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !isAlnum(r)
	})
	if len(words) == 0 {
		return strings.Repeat("X", abbrevLen)
	}

	var b strings.Builder
	for _, w := range words {
		if b.Len() == abbrevLen {
			break
		}
		b.WriteRune(unicode.ToUpper([]rune(w)[0]))
	}

	pool := strings.ToUpper(strings.Join(words, ""))
	for _, r := range pool {
		if b.Len() >= abbrevLen {
			break
		}
		if !strings.ContainsRune(b.String(), r) {
			b.WriteRune(r)
		}
	}

	return (b.String() + strings.Repeat("X", abbrevLen))[:abbrevLen]
}

func isAlnum(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
