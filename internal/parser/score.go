package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

// Tags.
const (
	TagATM     = "ATM"
	TagPackage = "PACKAGE"
)

var linkRe = regexp.MustCompile(`https?://\S+`)

// DetectTags flags ATM withdrawals and package purchases. Tags are
// independent and joined with "|".
func DetectTags(body string) string {
	b := strings.ToLower(body)

	var tags []string
	if strings.Contains(b, "atm") || strings.Contains(b, "withdraw") {
		tags = append(tags, TagATM)
	}
	if strings.Contains(b, "package") {
		tags = append(tags, TagPackage)
	}
	return strings.Join(tags, "|")
}

// ExtractLinks returns every http(s) URL in body joined with "|".
func ExtractLinks(body string) string {
	return strings.Join(linkRe.FindAllString(body, -1), "|")
}

var (
	weightAmount      = decimal.RequireFromString("0.3")
	weightDirection   = decimal.RequireFromString("0.2")
	weightInstitution = decimal.RequireFromString("0.2")
	weightReference   = decimal.RequireFromString("0.2")
	weightTitle       = decimal.RequireFromString("0.1")
)

// Score is a coarse completeness signal in [0,1], not a probability.
func Score(amount decimal.Decimal, dir domain.TransactionType, institution, transactionID, title string) float64 {
	score := decimal.Zero
	if !amount.IsZero() {
		score = score.Add(weightAmount)
	}
	if dir != domain.TypeUnknown {
		score = score.Add(weightDirection)
	}
	if institution != "" {
		score = score.Add(weightInstitution)
	}
	if transactionID != "" {
		score = score.Add(weightReference)
	}
	if title != "" {
		score = score.Add(weightTitle)
	}
	return score.InexactFloat64()
}
