package mail

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayoutPaidMessage(t *testing.T) {
	m := NewMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "payouts@example.com"})

	msg, err := m.newMessage("seller@example.com", "Your payout has been sent", payoutPaidTemplate, PayoutPaid{
		SellerName:    "Acme & Sons",
		PayoutID:      "0190b2a4-7c1e-7a00-8000-00000000a001",
		Amount:        decimal.RequireFromString("5100"),
		TransactionID: "trf_123",
		PaidAt:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "To: seller@example.com")
	assert.Contains(t, out, "From: payouts@example.com")
	assert.Contains(t, out, "trf_123")
	assert.Contains(t, out, "01 Mar 2026 10:00 UTC")
	assert.Contains(t, out, "Acme &amp; Sons")
}

func TestSendPayoutPaidSkipsWithoutHost(t *testing.T) {
	m := NewMailer(SMTPConfig{})
	assert.False(t, m.Enabled())
	assert.NoError(t, m.SendPayoutPaid("seller@example.com", PayoutPaid{}))
}
