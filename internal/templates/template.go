package templates

import (
	"fmt"
	"regexp"
	"strings"
)

// Field names produced by the default catalog.
const (
	FieldAmount        = "amount"
	FieldAccount       = "account"
	FieldBalance       = "balance"
	FieldTransactionID = "transaction_id"
)

// FieldRule is an ordered list of candidate patterns for one field.
// The first pattern with a match wins; later patterns are not tried.
type FieldRule struct {
	Name     string
	Patterns []string
}

// Template describes one institution: how to recognise its messages and
// how to pull fields out of them. It is plain data.
type Template struct {
	Name         string
	Senders      []string
	BodyPatterns []string
	Tag          string
	Fields       []FieldRule
}

// Field is a compiled FieldRule.
type Field struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Compiled is a Template whose patterns have been compiled case-insensitively.
// It is read-only after construction and safe for concurrent use.
type Compiled struct {
	Template

	senders []string
	body    []*regexp.Regexp
	fields  []Field
}

// MatchesSender reports whether any sender cue is a substring of sender.
// sender must already be lower-cased.
func (c *Compiled) MatchesSender(sender string) bool {
	for _, s := range c.senders {
		if strings.Contains(sender, s) {
			return true
		}
	}
	return false
}

// MatchesBody reports whether any body cue matches body.
func (c *Compiled) MatchesBody(body string) bool {
	for _, re := range c.body {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}

// Fields returns the compiled field rules in declaration order.
func (c *Compiled) Fields() []Field {
	return c.fields
}

// compile builds a Compiled template. Patterns that fail to compile are
// skipped and reported; the template itself is rejected only when it has
// no usable cue at all.
func compile(t Template) (*Compiled, []error) {
	var errs []error

	c := &Compiled{Template: t}
	for _, s := range t.Senders {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			c.senders = append(c.senders, s)
		}
	}

	for _, p := range t.BodyPatterns {
		re, err := compilePattern(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("template %q: body pattern %q: %w", t.Name, p, err))
			continue
		}
		c.body = append(c.body, re)
	}

	if len(c.senders) == 0 && len(c.body) == 0 {
		errs = append(errs, fmt.Errorf("template %q: no sender or body cues", t.Name))
		return nil, errs
	}

	for _, rule := range t.Fields {
		f := Field{Name: rule.Name}
		for _, p := range rule.Patterns {
			re, err := compilePattern(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("template %q: field %q pattern %q: %w", t.Name, rule.Name, p, err))
				continue
			}
			f.Patterns = append(f.Patterns, re)
		}
		c.fields = append(c.fields, f)
	}

	return c, errs
}

func compilePattern(p string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + p)
}
