// Package price turns scraped price text into numbers.
//
// Marketplaces in scope format prices the Greek way ("1.234,56 €"), but
// listings copied from elsewhere regularly use "1,234.56". The rules are:
// a lone '.' is a thousands separator, a lone ',' is the decimal mark, and
// when both appear the later one is the decimal mark.
package price

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// longer words first so "euro" is not left as "o"
var currencyTokens = []string{"€", "$", "£", "euro", "eur", "ευρώ"}

var (
	amount = `\d(?:[\d.,]*\d)?`
	space  = `[\s\x{00a0}\x{202f}]*`

	tokenPattern = regexp.MustCompile(`(?i)(?:€` + space + amount + `|` + amount + space + `(?:€|eur\b|ευρώ|euro\b))`)
)

// Parse returns the numeric value of a price text and whether it could be read.
// It never panics; anything that is not a plain non-negative amount after
// stripping currency marks yields (0, false).
func Parse(text string) (float64, bool) {
	cleaned := strings.ToLower(text)
	for _, token := range currencyTokens {
		cleaned = strings.ReplaceAll(cleaned, token, "")
	}
	cleaned = strings.TrimFunc(cleaned, isSpace)
	if cleaned == "" {
		return 0, false
	}

	dot := strings.LastIndex(cleaned, ".")
	comma := strings.LastIndex(cleaned, ",")
	switch {
	case dot >= 0 && comma < 0:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	case dot >= 0 && comma >= 0:
		if dot < comma {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case comma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	if !plainNumber(cleaned) {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Find returns the first currency-adjacent amount in a larger text, e.g.
// "Laptop Dell 450 € Αθήνα" yields "450 €". It returns "" when none is present.
func Find(text string) string {
	return strings.TrimFunc(tokenPattern.FindString(text), isSpace)
}

// plainNumber accepts digits with at most one decimal point and at least one digit
func plainNumber(s string) bool {
	digits, points := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			points++
		default:
			return false
		}
	}
	return digits > 0 && points <= 1
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\u202f'
}
