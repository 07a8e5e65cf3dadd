package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const totalWindow = 30

var (
	serviceFeeRe = regexp.MustCompile(`(?i)(S\.charge|Service(?:\s+charge)?|service fee|service charge)[^\dE]{0,30}ETB\s*([0-9,]+(?:\.\d+)?)`)
	vatPercentRe = regexp.MustCompile(`(?i)([0-9]{1,3})%\s*VAT(?:\s+of)?\s*(?:ETB)?\s*([0-9,]+(?:\.\d+)?)`)
	vatBareRe    = regexp.MustCompile(`(?i)VAT(?:\s*(?:of)?)\s*(?:ETB)?\s*([0-9,]+(?:\.\d+)?)`)
	totalRe      = regexp.MustCompile(`(?i)(?:total(?:\s+of)?|with a total of|total:)\s*ETB\s*([0-9,]+(?:\.\d+)?)`)

	one = decimal.NewFromInt(1)
)

// Fees is the VAT / service-fee breakdown of a message.
type Fees struct {
	VAT        decimal.Decimal
	ServiceFee decimal.Decimal
	Total      decimal.NullDecimal
}

// DecomposeFees scans body for explicitly stated service fee, VAT and
// total. When only a total is stated, the difference to the principal is
// split heuristically: whole ETB go to the service fee, the sub-ETB
// remainder to VAT.
func DecomposeFees(body string, principal decimal.NullDecimal) Fees {
	var f Fees

	if v, ok := firstFee(serviceFeeRe, body, 2); ok {
		f.ServiceFee = v
	}
	if v, ok := firstFee(vatPercentRe, body, 2); ok {
		f.VAT = v
	}
	if f.VAT.IsZero() {
		if v, ok := firstFee(vatBareRe, body, 1); ok {
			f.VAT = v
		}
	}
	if m := totalRe.FindStringSubmatch(body); m != nil {
		f.Total = decimal.NewNullDecimal(ParseAmount(m[1]))
	}

	if f.Total.Valid && principal.Valid && f.VAT.IsZero() && f.ServiceFee.IsZero() {
		f.VAT, f.ServiceFee = inferFees(f.Total.Decimal, principal.Decimal)
	}

	return f
}

// inferFees splits total-|principal| into (vat, service).
func inferFees(total, principal decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	inferred := total.Sub(principal.Abs()).Round(2)
	if !inferred.IsPositive() {
		return decimal.Zero, decimal.Zero
	}

	intPart := inferred.Truncate(0)
	decPart := inferred.Sub(intPart).Round(2)

	switch {
	case intPart.GreaterThanOrEqual(one) && decPart.IsPositive():
		return decPart, intPart
	case inferred.LessThan(one):
		return inferred, decimal.Zero
	default:
		return decimal.Zero, inferred
	}
}

// firstFee returns the capture of the first match that is not preceded by
// the word "total" within totalWindow runes.
func firstFee(re *regexp.Regexp, body string, group int) (decimal.Decimal, bool) {
	for _, m := range re.FindAllStringSubmatchIndex(body, -1) {
		if nearTotal(body, m[0]) {
			continue
		}
		return ParseAmount(body[m[2*group]:m[2*group+1]]), true
	}
	return decimal.Zero, false
}

func nearTotal(body string, start int) bool {
	lo := runesBefore(body, start, totalWindow)
	return strings.Contains(strings.ToLower(body[lo:start]), "total")
}
