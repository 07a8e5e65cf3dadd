package parser

import (
	"regexp"
	"strings"
	"unicode"
)

const namePattern = `([A-Z][A-Za-z.'\-\s]{1,80}?)`

// counterpartyPatterns are tried in order; specific phrasings come before
// generic ones.
var counterpartyPatterns = compileAll(
	`\bto\s+`+namePattern+`\s+on\s+\d{2}/\d{2}/\d{4}`,
	`\bto\s+`+namePattern+`\s+at\s+\d{2}:\d{2}:\d{2}`,
	`\bto\s+`+namePattern+`\b,`,
	`\bto\s+`+namePattern+`\s+on\b`,
	`\bfrom\s+`+namePattern+`\s+on\b`,
	`\bfrom\s+`+namePattern+`\b[,.]`,
	`credited with ETB\s*[0-9,]+(?:\.\d+)?\s+by\s+`+namePattern+`\b`,
	`credited by\s+`+namePattern+`\b`,
	`by\s+`+namePattern+`\s*.`,
	`BY FROM\s+`+namePattern+`\b`,
	`BY\s+`+namePattern+`\b`,
	`\bto\s+(.+?)\s+account number\b`,
	`\bfrom\s+(.+?)\s+account\b`,
)

var trailingPunctRe = regexp.MustCompile(`[\s,.]+$`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile("(?i)" + p)
	}
	return out
}

// ResolveCounterparty returns the other party named in body, or "".
// All-caps names are title-cased for display.
func ResolveCounterparty(body string) string {
	for _, re := range counterpartyPatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		name := trailingPunctRe.ReplaceAllString(strings.TrimSpace(m[1]), "")
		if isUpper(name) {
			name = titleCase(name)
		}
		return name
	}
	return ""
}

// isUpper reports whether s has at least one cased letter and no
// lower-case letters.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			cased = true
		}
	}
	return cased
}

// titleCase upper-cases the first letter of every letter run and
// lower-cases the rest, so "O'BRIEN" becomes "O'Brien".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevCased := false
	for _, r := range s {
		if prevCased {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToTitle(r))
		}
		prevCased = unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
	}
	return b.String()
}
