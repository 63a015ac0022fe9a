package clients

import (
	"errors"
	"fmt"

	"github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

var ErrMissingTransferID = errors.New("razorpay transfer response has no id")

// RazorpayClientWrapper is the subset of Razorpay used to settle payouts.
type RazorpayClientWrapper interface {
	CreateTransfer(accountID string, amount decimal.Decimal, notes map[string]string) (string, error)
}

// RazorpayClient implements RazorpayClientWrapper using the Razorpay SDK.
type RazorpayClient struct {
	Client *razorpay.Client
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		Client: razorpay.NewClient(keyID, keySecret),
	}
}

// ToPaise converts rupees to the integer minor units Razorpay expects.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// TransferRequest builds the body of a Route transfer to a linked account.
func TransferRequest(accountID string, amount decimal.Decimal, notes map[string]string) map[string]interface{} {
	data := map[string]interface{}{
		"account":  accountID,
		"amount":   ToPaise(amount),
		"currency": "INR",
	}
	if len(notes) > 0 {
		n := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}
	return data
}

// CreateTransfer moves amount to the seller's linked account and returns the
// Razorpay transfer id.
func (r *RazorpayClient) CreateTransfer(accountID string, amount decimal.Decimal, notes map[string]string) (string, error) {
	resp, err := r.Client.Transfer.Create(TransferRequest(accountID, amount, notes), nil)
	if err != nil {
		return "", fmt.Errorf("razorpay transfer failed: %w", err)
	}
	id, _ := resp["id"].(string)
	if id == "" {
		return "", ErrMissingTransferID
	}
	return id, nil
}
