package parser

import (
	"strings"

	"github.com/cashflow-ai/cashflow-backend/internal/templates"
)

// Classify returns the first template in registry order whose sender cue
// or body cue matches, or nil. Within one template the sender is checked
// before the body; across templates registry order decides.
func Classify(reg *templates.Registry, sender, body string) *templates.Compiled {
	sl := strings.ToLower(sender)
	bl := strings.ToLower(body)

	for _, tpl := range reg.Templates() {
		if tpl.MatchesSender(sl) {
			return tpl
		}
		if tpl.MatchesBody(bl) {
			return tpl
		}
	}
	return nil
}

// institutionRule maps sender/body hints to an institution tag.
type institutionRule struct {
	tag         string
	senderHints []string
	bodyHints   []string
}

// institutionRules is evaluated top to bottom; the first hit wins.
var institutionRules = []institutionRule{
	{tag: "Telebirr", senderHints: []string{"127", "telebirr"}},
	{tag: "CBE", senderHints: []string{"cbe", "commercial bank"}, bodyHints: []string{"cbe"}},
	{tag: "Dashen", senderHints: []string{"dashen"}, bodyHints: []string{"dashen"}},
	{tag: "Bunna", senderHints: []string{"bunna"}, bodyHints: []string{"bunna"}},
	{tag: "BOA", senderHints: []string{"bankofabyssinia"}, bodyHints: []string{"abyssinia", "bank of abyssinia"}},
}

// resolveInstitution starts from the template tag and lets explicit
// sender/body hints override it. Inputs must be lower-cased.
func resolveInstitution(tpl *templates.Compiled, sender, body string) string {
	for _, rule := range institutionRules {
		if containsAny(sender, rule.senderHints) || containsAny(body, rule.bodyHints) {
			return rule.tag
		}
	}
	if tpl == nil {
		return ""
	}
	return tpl.Tag
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
