package mailbox

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(strings.TrimLeft(s, "\n"), "\n", "\r\n"))
}

var fallback = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestParseRFC822_Multipart(t *testing.T) {
	raw := crlf(`
From: "Commercial Bank of Ethiopia" <notify@cbe.com.et>
To: alerts@example.com
Subject: =?UTF-8?B?Q0JFIERlYml0IEFsZXJ0?=
Date: Tue, 05 Mar 2024 14:30:00 +0300
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: multipart/alternative; boundary="b2"

--b2
Content-Type: text/html; charset=utf-8

<p>Your account has been debited</p>
--b2
Content-Type: text/plain; charset=utf-8

Dear Customer, your Account 1000***5678 has been debited with ETB 1,500.00.
--b2--
--b1
Content-Type: text/plain; name="statement.txt"
Content-Disposition: attachment; filename="statement.txt"

attachment text must not be used
--b1--
`)

	msg, err := ParseRFC822("42", raw, fallback)
	require.NoError(t, err)

	assert.Equal(t, "42", msg.ID)
	assert.Contains(t, msg.Sender, "notify@cbe.com.et")
	assert.Equal(t, "CBE Debit Alert", msg.Subject)
	assert.Equal(t,
		"Dear Customer, your Account 1000***5678 has been debited with ETB 1,500.00.",
		strings.TrimSpace(msg.Body))

	_, offset := msg.Date.Zone()
	assert.Equal(t, 3*60*60, offset)
	assert.Equal(t, 14, msg.Date.Hour())
	assert.Contains(t, msg.Raw, "attachment text must not be used")
}

func TestParseRFC822_SinglePart(t *testing.T) {
	raw := crlf(`
From: 127
Subject: telebirr
Date: Mon, 04 Mar 2024 08:15:00 +0000
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

You have received ETB 250.00 from Abebe Kebede. Your transaction number is=
 ABC123.
`)

	msg, err := ParseRFC822("7", raw, fallback)
	require.NoError(t, err)

	assert.Equal(t, "127", msg.Sender)
	assert.Equal(t, "telebirr", msg.Subject)
	assert.Equal(t,
		"You have received ETB 250.00 from Abebe Kebede. Your transaction number is ABC123.",
		strings.TrimSpace(msg.Body))
}

func TestParseRFC822_SinglePartAttachmentDisposition(t *testing.T) {
	raw := crlf(`
From: CBE
Subject: Transaction alert
Date: Mon, 04 Mar 2024 08:15:00 +0000
Content-Type: text/plain; charset=utf-8
Content-Disposition: attachment; filename="alert.txt"

Your Account 1*****6789 has been credited with ETB 300.00.
`)

	msg, err := ParseRFC822("11", raw, fallback)
	require.NoError(t, err)
	assert.Equal(t, "Your Account 1*****6789 has been credited with ETB 300.00.", strings.TrimSpace(msg.Body))
}

func TestParseRFC822_NoContentType(t *testing.T) {
	raw := crlf(`
From: bunna@bunnabank.com
Subject: alert
Date: Mon, 04 Mar 2024 08:15:00 +0000

Plain body without headers.
`)

	msg, err := ParseRFC822("8", raw, fallback)
	require.NoError(t, err)
	assert.Equal(t, "Plain body without headers.", strings.TrimSpace(msg.Body))
}

func TestParseRFC822_MissingDate(t *testing.T) {
	raw := crlf(`
From: dashen@dashenbanksc.com
Subject: no date

Body.
`)

	msg, err := ParseRFC822("9", raw, fallback)
	require.NoError(t, err)
	assert.True(t, msg.Date.Equal(fallback))
}

func TestParseRFC822_NoPlainTextPart(t *testing.T) {
	raw := crlf(`
From: notify@example.com
Subject: html only
Date: Mon, 04 Mar 2024 08:15:00 +0000
Content-Type: multipart/alternative; boundary="b"

--b
Content-Type: text/html; charset=utf-8

<p>hi</p>
--b--
`)

	msg, err := ParseRFC822("10", raw, fallback)
	require.NoError(t, err)
	assert.Empty(t, msg.Body)
}

func TestCredentials(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := Credentials{EmailAddress: "a@example.com", AppPassword: "pw"}
		assert.True(t, c.Valid())
		assert.Equal(t, "imap.gmail.com:993", c.Addr())
		assert.Equal(t, "INBOX", c.Mailbox())
	})

	t.Run("explicit server and port", func(t *testing.T) {
		c := Credentials{Server: "mail.example.com", Port: 1993, Folder: "Banks"}
		assert.Equal(t, "mail.example.com:1993", c.Addr())
		assert.Equal(t, "Banks", c.Mailbox())
	})

	t.Run("port embedded in server", func(t *testing.T) {
		c := Credentials{Server: "mail.example.com:2993", Port: 1993}
		assert.Equal(t, "mail.example.com:2993", c.Addr())
	})

	t.Run("invalid", func(t *testing.T) {
		assert.False(t, Credentials{EmailAddress: "a@example.com"}.Valid())
		assert.False(t, Credentials{AppPassword: "pw"}.Valid())
		assert.False(t, Credentials{EmailAddress: "  ", AppPassword: "pw"}.Valid())
	})
}

func TestIMAPDialer_MissingCredentials(t *testing.T) {
	_, err := NewIMAPDialer(time.Second).Dial(t.Context(), Credentials{})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
