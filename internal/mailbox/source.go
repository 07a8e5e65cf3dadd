// Package mailbox reads bank notifications from a mail store.
package mailbox

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

// DefaultServer is used when credentials carry no server.
const DefaultServer = "imap.gmail.com"

// DefaultPort is the IMAPS port.
const DefaultPort = 993

// ErrMissingCredentials is returned when the address or password is empty.
var ErrMissingCredentials = errors.New("missing email credentials")

// Credentials identify a mailbox.
type Credentials struct {
	Server       string
	Port         int
	EmailAddress string
	AppPassword  string
	Folder       string
}

// Valid reports whether the address and password are both set.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.EmailAddress) != "" && c.AppPassword != ""
}

// Addr returns host:port, filling in defaults. A port embedded in Server
// takes precedence over Port.
func (c Credentials) Addr() string {
	server := strings.TrimSpace(c.Server)
	if server == "" {
		server = DefaultServer
	}
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(server, strconv.Itoa(port))
}

// Mailbox returns the folder to read, INBOX by default.
func (c Credentials) Mailbox() string {
	if c.Folder == "" {
		return "INBOX"
	}
	return c.Folder
}

// Source yields the unread messages of one mailbox.
//
// FetchUnread never fails: listing or decoding problems are logged through
// the logger carried by ctx and the affected messages are left out.
type Source interface {
	FetchUnread(ctx context.Context) []domain.RawMessage
	MarkRead(ctx context.Context, id string) error
	Close() error
}

// Dialer opens a Source for a set of credentials.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Source, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context, creds Credentials) (Source, error)

// Dial implements Dialer.
func (f DialFunc) Dial(ctx context.Context, creds Credentials) (Source, error) {
	return f(ctx, creds)
}
