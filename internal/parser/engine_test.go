package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
)

var fixtureDate = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func message(sender, body string) domain.RawMessage {
	return domain.RawMessage{
		ID:     "42",
		Sender: sender,
		Body:   body,
		Date:   fixtureDate,
		Raw:    "raw:" + body,
	}
}

func TestEngine_CBEDebit(t *testing.T) {
	body := "Dear Customer your Account 1*****6789 has been debited with ETB 500.00. " +
		"Your Current Balance is ETB 1,250.00. Thank you for Banking with CBE! " +
		"https://apps.cbe.com.et:100/?id=FT25073ABCD12345678"

	res := New(nil).Evaluate(message("CBE", "  "+body+"\n"))
	require.Equal(t, SkipNone, res.Skip)
	require.NotNil(t, res.Transaction)

	tx := res.Transaction
	assert.Equal(t, "CBE", res.Template)
	assert.Equal(t, -500.0, tx.Amount)
	assert.Equal(t, domain.TypeDebit, tx.Type)
	assert.Equal(t, "CBE", tx.AccountName)
	assert.Equal(t, "1*****6789", tx.AccountNumber)
	assert.Equal(t, "FT25073ABCD12345678", tx.TransactionID)
	assert.Equal(t, "https://apps.cbe.com.et:100/?id=FT25073ABCD12345678", tx.Link)
	assert.Equal(t, "2025-03-14", tx.Date)
	assert.Equal(t, "09:26:53", tx.Time)
	assert.Equal(t, domain.CategoryUnclassified, tx.Category)
	assert.Equal(t, body, tx.Notes)
	assert.Empty(t, tx.Title)
	assert.Empty(t, tx.Tags)
	assert.Empty(t, tx.Error)
	assert.Zero(t, tx.VAT)
	assert.Zero(t, tx.ServiceFee)
	assert.InDelta(t, 0.9, tx.Confidence, 1e-9)
	assert.Equal(t, "42", tx.EmailID)
	assert.Equal(t, "raw:  "+body+"\n", tx.RawEmail)
}

func TestEngine_TelebirrCredit(t *testing.T) {
	body := "Dear Customer, You have received ETB 1,500.00 from Abebe Kebede on 14/03/2025 at 10:00:00. " +
		"Your transaction number is CCE1ABCDEF. Your telebirr account balance is ETB 2,000.00. Thank you for using telebirr"

	res := New(nil).Evaluate(message("127", body))
	require.NotNil(t, res.Transaction)

	tx := res.Transaction
	assert.Equal(t, "Telebirr", res.Template)
	assert.Equal(t, 1500.0, tx.Amount)
	assert.Equal(t, domain.TypeCredit, tx.Type)
	assert.Equal(t, "Telebirr", tx.AccountName)
	assert.Equal(t, "CCE1ABCDEF", tx.TransactionID)
	assert.Equal(t, "Abebe Kebede", tx.Title)
	assert.Empty(t, tx.AccountNumber)
	assert.Equal(t, 1.0, tx.Confidence)
}

func TestEngine_BOACreditWithLink(t *testing.T) {
	body := "Dear Customer, your account 1*****23 was credited with ETB 3,000.00 by Almaz. " +
		"Receipt: https://cs.bankofabyssinia.com/slip/?trx=FT2507312345"

	res := New(nil).Evaluate(message("BoA", body))
	require.NotNil(t, res.Transaction)

	tx := res.Transaction
	assert.Equal(t, "BOA", res.Template)
	assert.Equal(t, 3000.0, tx.Amount)
	assert.Equal(t, domain.TypeCredit, tx.Type)
	assert.Equal(t, "BOA", tx.AccountName)
	assert.Equal(t, "1*****23", tx.AccountNumber)
	assert.Equal(t, "FT2507312345", tx.TransactionID)
	assert.Equal(t, "Almaz", tx.Title)
	assert.Equal(t, "https://cs.bankofabyssinia.com/slip/?trx=FT2507312345", tx.Link)
}

func TestEngine_BunnaATMWithdrawal(t *testing.T) {
	body := "A Withdrawal of 1,000.00 ETB has been made from your account 12****89 at ATM on 14/03/2025."

	tx := New(nil).Parse(message("Bunna Bank", body))
	require.NotNil(t, tx)

	assert.Equal(t, -1000.0, tx.Amount)
	assert.Equal(t, domain.TypeDebit, tx.Type)
	assert.Equal(t, "Bunna", tx.AccountName)
	assert.Equal(t, "12****89", tx.AccountNumber)
	assert.Equal(t, TagATM, tx.Tags)
}

func TestEngine_SenderPriority(t *testing.T) {
	e := New(nil)
	body := "Your Dashen wallet top-up: account has been credited with ETB 300.00"

	tpl := e.Classify("CBE-alerts@cbe.com.et", body)
	require.NotNil(t, tpl)
	assert.Equal(t, "CBE", tpl.Name)

	tx := e.Parse(message("CBE-alerts@cbe.com.et", body))
	require.NotNil(t, tx)
	assert.Equal(t, "CBE", tx.AccountName)
	assert.Equal(t, 300.0, tx.Amount)
}

func TestEngine_RegistryOrderBeatsLaterSender(t *testing.T) {
	e := New(nil)

	// CBE is registered before Dashen, so its body cue wins over Dashen's sender cue.
	tpl := e.Classify("dashenbank", "Your account has been credited with ETB 300.00")
	require.NotNil(t, tpl)
	assert.Equal(t, "CBE", tpl.Name)

	// The institution hint from the sender still names the bank.
	tx := e.Parse(message("dashenbank", "Your account has been credited with ETB 300.00"))
	require.NotNil(t, tx)
	assert.Equal(t, "Dashen", tx.AccountName)
}

func TestEngine_SkipOutcomes(t *testing.T) {
	e := New(nil)

	t.Run("no template", func(t *testing.T) {
		res := e.Evaluate(message("friend@example.com", "see you tomorrow"))
		assert.Equal(t, SkipNoTemplate, res.Skip)
		assert.Nil(t, res.Transaction)
		assert.Empty(t, res.Template)
	})

	t.Run("balance only", func(t *testing.T) {
		res := e.Evaluate(message("CBE", "Your Current Balance is ETB 1,250.00"))
		assert.Equal(t, SkipZeroAmount, res.Skip)
		assert.Equal(t, "CBE", res.Template)
		assert.Nil(t, res.Transaction)
	})

	t.Run("balance context without extracted balance", func(t *testing.T) {
		res := e.Evaluate(message("CBE", "Available balance: ETB 75.00"))
		assert.Equal(t, "CBE", res.Template)
		require.NotNil(t, res.Transaction)
		assert.Equal(t, 75.0, res.Transaction.Amount)
	})

	t.Run("zero amount", func(t *testing.T) {
		res := e.Evaluate(message("telebirr", "You have paid ETB 0.00 for nothing"))
		assert.Equal(t, SkipZeroAmount, res.Skip)
	})
}

func TestEngine_FeeInferenceEndToEnd(t *testing.T) {
	body := "Dear Customer your Account 1*****6789 has been debited with ETB 100.00 with a total of ETB 102.50."

	tx := New(nil).Parse(message("CBE", body))
	require.NotNil(t, tx)

	assert.Equal(t, -100.0, tx.Amount)
	assert.Equal(t, 2.0, tx.ServiceFee)
	assert.Equal(t, 0.5, tx.VAT)
}

func TestEngine_Deterministic(t *testing.T) {
	e := New(nil)
	msg := message("CBE", "You have transfered ETB 250.00 to JOHN DOE on 14/03/2025 at 10:00:00 from your account 1*****6789. "+
		"Service charge of ETB 2.00 and 15% VAT of ETB 0.30. https://apps.cbe.com.et:100/?id=FT1")

	first := e.Parse(msg)
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Parse(msg))
	}
	assert.Equal(t, "John Doe", first.Title)
	assert.Equal(t, 2.0, first.ServiceFee)
	assert.Equal(t, 0.3, first.VAT)
}

func TestEngine_ResultRoundTripsThroughMap(t *testing.T) {
	tx := New(nil).Parse(message("CBE", "Dear Customer your Account 1*****6789 has been debited with ETB 1,234.57 with a total of ETB 1,236.72."))
	require.NotNil(t, tx)

	got, err := domain.FromMap(tx.ToMap())
	require.NoError(t, err)
	assert.Equal(t, tx, got)
	assert.Equal(t, -1234.57, got.Amount)
	assert.Equal(t, 2.0, got.ServiceFee)
	assert.Equal(t, 0.15, got.VAT)
}
