package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
)

// IMAPDialer connects to an IMAP server over TLS.
type IMAPDialer struct {
	// Timeout bounds the TCP dial and every IMAP command. Zero means no limit.
	Timeout   time.Duration
	TLSConfig *tls.Config
	// Now stamps messages without a usable Date header.
	Now func() time.Time
}

// NewIMAPDialer returns a dialer with the given timeout.
func NewIMAPDialer(timeout time.Duration) *IMAPDialer {
	return &IMAPDialer{Timeout: timeout, Now: time.Now}
}

// Dial logs in and returns a Source for creds.Mailbox().
func (d *IMAPDialer) Dial(ctx context.Context, creds Credentials) (Source, error) {
	if !creds.Valid() {
		return nil, ErrMissingCredentials
	}

	dialer := &net.Dialer{Timeout: d.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	c, err := client.DialWithDialerTLS(dialer, creds.Addr(), d.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", creds.Addr(), err)
	}
	c.Timeout = d.Timeout

	if err := c.Login(creds.EmailAddress, creds.AppPassword); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("login %s: %w", creds.EmailAddress, err)
	}

	now := d.Now
	if now == nil {
		now = time.Now
	}

	return &imapSource{client: c, folder: creds.Mailbox(), now: now}, nil
}

type imapSource struct {
	client *client.Client
	folder string
	now    func() time.Time
}

// FetchUnread selects the folder, searches UNSEEN and fetches each message
// with BODY.PEEK[] so fetching alone never sets \Seen.
func (s *imapSource) FetchUnread(ctx context.Context) []domain.RawMessage {
	log := logger.FromContext(ctx)

	if _, err := s.client.Select(s.folder, false); err != nil {
		log.Error().Err(err).Str("folder", s.folder).Msg("Failed to select mailbox")
		return nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		log.Error().Err(err).Str("folder", s.folder).Msg("Failed to search unread messages")
		return nil
	}
	if len(uids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqset, items, messages)
	}()

	byUID := make(map[uint32]domain.RawMessage, len(uids))
	for m := range messages {
		id := strconv.FormatUint(uint64(m.Uid), 10)

		body := m.GetBody(section)
		if body == nil {
			log.Warn().Str("email_id", id).Msg("Server returned no body for message")
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			log.Error().Err(err).Str("email_id", id).Msg("Failed to read message body")
			continue
		}

		msg, err := ParseRFC822(id, raw, s.now())
		if err != nil {
			log.Error().Err(err).Str("email_id", id).Msg("Failed to parse message")
			continue
		}
		byUID[m.Uid] = msg
	}

	if err := <-done; err != nil {
		log.Error().Err(err).Int("count", len(uids)).Msg("Failed to fetch unread messages")
		return nil
	}

	out := make([]domain.RawMessage, 0, len(byUID))
	for _, uid := range uids {
		if msg, ok := byUID[uid]; ok {
			out = append(out, msg)
		}
	}

	log.Debug().Int("count", len(out)).Str("folder", s.folder).Msg("Fetched unread messages")
	return out
}

// MarkRead adds \Seen to the message with the given UID.
func (s *imapSource) MarkRead(ctx context.Context, id string) error {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return fmt.Errorf("mark read: invalid message id %q: %w", id, err)
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("mark read %s: %w", id, err)
	}
	return nil
}

// Close logs out and closes the connection.
func (s *imapSource) Close() error {
	if err := s.client.Logout(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

var _ Dialer = (*IMAPDialer)(nil)
var _ Source = (*imapSource)(nil)
