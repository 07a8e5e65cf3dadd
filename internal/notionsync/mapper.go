package notionsync

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

// Property names of the transactions database.
const (
	PropName          = "Name"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropAccount       = "Account"
	PropAccountNumber = "Account Number"
	PropDate          = "Date"
	PropCategory      = "Category"
	PropVAT           = "VAT"
	PropServiceFee    = "Service Fee"
	PropTags          = "Tags"
	PropTransactionID = "Transaction ID"
	PropEmailID       = "Email ID"
	PropLink          = "Link"
	PropConfidence    = "Confidence"
	PropNotes         = "Notes"
)

// maxRichTextRunes is Notion's limit for a single rich text object.
const maxRichTextRunes = 2000

// TransactionToNotionProperties converts a parsed transaction to the
// properties of a page in the transactions database.
func TransactionToNotionProperties(tx *domain.ParsedTransaction) notionapi.Properties {
	props := notionapi.Properties{
		PropName:       notionapi.TitleProperty{Title: richText(pageTitle(tx))},
		PropAmount:     notionapi.NumberProperty{Number: tx.Amount},
		PropVAT:        notionapi.NumberProperty{Number: tx.VAT},
		PropServiceFee: notionapi.NumberProperty{Number: tx.ServiceFee},
		PropConfidence: notionapi.NumberProperty{Number: tx.Confidence},
		PropEmailID:    notionapi.RichTextProperty{RichText: richText(tx.EmailID)},
	}

	if tx.Type != domain.TypeUnknown {
		props[PropType] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Type)}}
	}
	if tx.AccountName != "" {
		props[PropAccount] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.AccountName}}
	}
	if tx.AccountNumber != "" {
		props[PropAccountNumber] = notionapi.RichTextProperty{RichText: richText(tx.AccountNumber)}
	}
	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}}
	}
	if tx.TransactionID != "" {
		props[PropTransactionID] = notionapi.RichTextProperty{RichText: richText(tx.TransactionID)}
	}
	if tx.Notes != "" {
		props[PropNotes] = notionapi.RichTextProperty{RichText: richText(tx.Notes)}
	}

	if at, err := tx.OccurredAt(time.UTC); err == nil {
		d := notionapi.Date(at)
		props[PropDate] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
	}

	if tx.Link != "" {
		// Only the first link fits a URL property.
		props[PropLink] = notionapi.URLProperty{URL: strings.SplitN(tx.Link, "|", 2)[0]}
	}

	if tx.Tags != "" {
		var opts []notionapi.Option
		for _, tag := range strings.Split(tx.Tags, "|") {
			if tag != "" {
				opts = append(opts, notionapi.Option{Name: tag})
			}
		}
		props[PropTags] = notionapi.MultiSelectProperty{MultiSelect: opts}
	}

	return props
}

// pageTitle picks the counterparty, then the reference, then the institution.
func pageTitle(tx *domain.ParsedTransaction) string {
	for _, s := range []string{tx.Title, tx.TransactionID, tx.AccountName} {
		if s != "" {
			return s
		}
	}
	return tx.EmailID
}

func richText(content string) []notionapi.RichText {
	if r := []rune(content); len(r) > maxRichTextRunes {
		content = string(r[:maxRichTextRunes])
	}
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

// extractEmailID returns the Email ID stored on a page, or "".
func extractEmailID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropEmailID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
