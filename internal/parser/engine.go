// Package parser turns bank-notification messages into structured
// transactions. It is deterministic, performs no I/O and keeps no state
// between calls, so an Engine may be shared across goroutines.
package parser

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/templates"
)

// SkipReason explains why a message produced no transaction.
type SkipReason string

const (
	SkipNone       SkipReason = ""
	SkipNoTemplate SkipReason = "no_template"
	SkipZeroAmount SkipReason = "zero_amount"
)

// Result is the outcome of evaluating one message. Transaction is nil
// whenever Skip is set.
type Result struct {
	Transaction *domain.ParsedTransaction
	Template    string
	Skip        SkipReason
}

// Engine evaluates messages against an ordered template registry.
type Engine struct {
	registry *templates.Registry
}

// New creates an Engine over reg, or over templates.Default when reg is nil.
func New(reg *templates.Registry) *Engine {
	if reg == nil {
		reg = templates.Default()
	}
	return &Engine{registry: reg}
}

// Registry returns the registry the engine classifies against.
func (e *Engine) Registry() *templates.Registry {
	return e.registry
}

// Classify returns the template selected for (sender, body), or nil.
func (e *Engine) Classify(sender, body string) *templates.Compiled {
	return Classify(e.registry, sender, body)
}

// Parse returns the transaction described by msg, or nil when the message
// matches no template or carries no non-zero amount.
func (e *Engine) Parse(msg domain.RawMessage) *domain.ParsedTransaction {
	return e.Evaluate(msg).Transaction
}

// Evaluate runs the full extraction cascade for one message.
func (e *Engine) Evaluate(msg domain.RawMessage) Result {
	body := strings.TrimSpace(msg.Body)

	tpl := e.Classify(msg.Sender, body)
	if tpl == nil {
		return Result{Skip: SkipNoTemplate}
	}

	fields := Extract(tpl, body)

	amount := ResolveAmount(fields, body)
	if amount.IsZero() {
		return Result{Template: tpl.Name, Skip: SkipZeroAmount}
	}

	dir := ResolveDirection(body)
	amount = ApplyDirection(amount, dir)

	fees := DecomposeFees(body, decimal.NewNullDecimal(amount))
	institution := resolveInstitution(tpl, strings.ToLower(msg.Sender), strings.ToLower(body))
	title := ResolveCounterparty(body)
	txID := fields.Get(templates.FieldTransactionID)

	tx := &domain.ParsedTransaction{
		Amount:        amount.InexactFloat64(),
		AccountName:   institution,
		AccountNumber: fields.Get(templates.FieldAccount),
		Date:          msg.Date.Format(domain.DateLayout),
		Time:          msg.Date.Format(domain.TimeLayout),
		Type:          dir,
		Category:      domain.CategoryUnclassified,
		Title:         title,
		Notes:         body,
		Link:          ExtractLinks(body),
		VAT:           fees.VAT.InexactFloat64(),
		ServiceFee:    fees.ServiceFee.InexactFloat64(),
		Tags:          DetectTags(body),
		TransactionID: txID,
		Confidence:    Score(amount, dir, institution, txID, title),
		EmailID:       msg.ID,
		RawEmail:      msg.Raw,
	}

	return Result{Transaction: tx, Template: tpl.Name}
}
