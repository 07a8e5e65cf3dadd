// Package mailboxtest provides an in-memory mailbox for tests.
package mailboxtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
)

// ErrDial is returned by a Dialer configured to refuse connections.
var ErrDial = errors.New("mailboxtest: connection refused")

// Mailbox is an in-memory mailbox. It is safe for concurrent use.
type Mailbox struct {
	mu       sync.Mutex
	messages []domain.RawMessage
	read     map[string]bool

	// MarkReadErr, when set, is returned by every MarkRead call.
	MarkReadErr error

	dials  int
	closes int
}

// New returns a mailbox holding msgs, all unread.
func New(msgs ...domain.RawMessage) *Mailbox {
	return &Mailbox{messages: msgs, read: make(map[string]bool)}
}

// Add appends unread messages.
func (m *Mailbox) Add(msgs ...domain.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
}

// IsRead reports whether the message with id was marked read.
func (m *Mailbox) IsRead(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read[id]
}

// Dials returns how many sessions were opened.
func (m *Mailbox) Dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// Closes returns how many sessions were closed.
func (m *Mailbox) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Dialer returns a dialer that opens sessions on m. When refuse is true
// every dial fails with ErrDial.
func (m *Mailbox) Dialer(refuse bool) mailbox.Dialer {
	return mailbox.DialFunc(func(ctx context.Context, creds mailbox.Credentials) (mailbox.Source, error) {
		if !creds.Valid() {
			return nil, mailbox.ErrMissingCredentials
		}
		if refuse {
			return nil, ErrDial
		}
		m.mu.Lock()
		m.dials++
		m.mu.Unlock()
		return &session{box: m}, nil
	})
}

type session struct {
	box *Mailbox
}

func (s *session) FetchUnread(ctx context.Context) []domain.RawMessage {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()

	var out []domain.RawMessage
	for _, msg := range s.box.messages {
		if !s.box.read[msg.ID] {
			out = append(out, msg)
		}
	}
	return out
}

func (s *session) MarkRead(ctx context.Context, id string) error {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()

	if s.box.MarkReadErr != nil {
		return s.box.MarkReadErr
	}
	s.box.read[id] = true
	return nil
}

func (s *session) Close() error {
	s.box.mu.Lock()
	defer s.box.mu.Unlock()
	s.box.closes++
	return nil
}
