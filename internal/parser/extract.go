package parser

import (
	"strings"

	"github.com/cashflow-ai/cashflow-backend/internal/templates"
)

// Fields holds the raw strings captured by a template's field rules.
// A key is present once one of its patterns matched, even if the capture
// was empty.
type Fields map[string]string

// Get returns the captured value or "" when the field is absent.
func (f Fields) Get(name string) string {
	return f[name]
}

// Has reports whether any pattern of the field matched.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Extract applies every field rule of tpl to body. For each field the
// first matching pattern wins and the remaining ones are skipped.
func Extract(tpl *templates.Compiled, body string) Fields {
	out := make(Fields)
	if tpl == nil {
		return out
	}

	for _, field := range tpl.Fields() {
		for _, re := range field.Patterns {
			m := re.FindStringSubmatch(body)
			if m == nil {
				continue
			}
			var v string
			if len(m) > 1 {
				v = strings.TrimSpace(m[1])
			}
			out[field.Name] = v
			break
		}
	}

	return out
}
