package schema

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Casing controls how member names are spelled as JSON keys.
type Casing int

const (
	// CasingDefault uses member names unchanged.
	CasingDefault Casing = iota
	// CasingCamel lower-cases the first rune ("UserId" → "userId").
	CasingCamel
	// CasingSnake splits words with underscores ("UserId" → "user_id").
	CasingSnake
)

// ParseCasing parses a configuration spelling of a Casing.
func ParseCasing(s string) (Casing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return CasingDefault, nil
	case "camel", "camelcase":
		return CasingCamel, nil
	case "snake", "snakecase", "snake_case":
		return CasingSnake, nil
	default:
		return CasingDefault, fmt.Errorf("unknown casing %q", s)
	}
}

// String returns the configuration spelling.
func (c Casing) String() string {
	switch c {
	case CasingCamel:
		return "camel"
	case CasingSnake:
		return "snake"
	default:
		return "default"
	}
}

// Key returns the JSON key for a member name.
// Names are NFC normalized first so equivalent spellings map to identical
// locators.
func (c Casing) Key(member string) string {
	name := norm.NFC.String(member)
	switch c {
	case CasingCamel:
		r, size := utf8.DecodeRuneInString(name)
		if r == utf8.RuneError {
			return name
		}
		return string(unicode.ToLower(r)) + name[size:]
	case CasingSnake:
		return snake(name)
	default:
		return name
	}
}

func snake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
