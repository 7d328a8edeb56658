// Package keys derives storage keys and content hashes.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const sessionPrefix = "occ:session:"

// SessionResult is the key holding a session's single result slot.
func SessionResult(sessionID string) string {
	return sessionPrefix + sanitizeForKey(strings.TrimSpace(sessionID)) + ":result"
}

// ETag is a strong entity tag over body.
func ETag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
}

// Fetch fingerprints the inputs of one fetch so log lines and events can be
// correlated without repeating free text.
func Fetch(species, field string, yearFrom *int, pageSize int) string {
	y := "*"
	if yearFrom != nil {
		y = fmt.Sprint(*yearFrom)
	}
	norm := strings.ToLower(collapseASCIIWhitespace(species))
	return fmt.Sprintf("%016x", xxhash.Sum64String(norm+"|"+field+"|"+y+"|"+fmt.Sprint(pageSize)))
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case isASCIIWhitespace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// separators and non-ASCII collapse to '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if isASCIIWhitespace(r) {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isASCIIWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
