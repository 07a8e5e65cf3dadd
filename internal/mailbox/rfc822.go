package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

// ParseRFC822 decodes a raw message. The body is the first non-attachment
// text/plain part; a single-part message contributes its whole body.
// fallback is used when the Date header is missing or unparsable.
func ParseRFC822(id string, raw []byte, fallback time.Time) (domain.RawMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return domain.RawMessage{}, fmt.Errorf("read message %s: %w", id, err)
	}
	defer mr.Close()

	h := mr.Header

	sender, err := h.Text("From")
	if err != nil {
		sender = h.Get("From")
	}
	subject, err := h.Subject()
	if err != nil {
		subject = h.Get("Subject")
	}
	date, err := h.Date()
	if err != nil || date.IsZero() {
		date = fallback.UTC()
	}

	body, err := plainTextBody(mr)
	if err != nil {
		return domain.RawMessage{}, fmt.Errorf("read body of message %s: %w", id, err)
	}

	return domain.RawMessage{
		ID:      id,
		Sender:  sender,
		Subject: subject,
		Body:    body,
		Date:    date,
		Raw:     strings.ToValidUTF8(string(raw), ""),
	}, nil
}

func plainTextBody(mr *mail.Reader) (string, error) {
	mediaType, _, _ := mr.Header.ContentType()
	multipart := strings.HasPrefix(mediaType, "multipart/")

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return "", nil
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return "", err
		}
		if p == nil {
			continue
		}

		// A single-part message is its own body whatever its disposition.
		if multipart {
			h, ok := p.Header.(*mail.InlineHeader)
			if !ok {
				continue
			}
			if ct, _, _ := h.ContentType(); ct != "" && ct != "text/plain" {
				continue
			}
		}

		b, err := io.ReadAll(p.Body)
		if err != nil {
			return "", err
		}
		return strings.ToValidUTF8(string(b), ""), nil
	}
}
