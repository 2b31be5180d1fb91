package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentTMoney      PaymentMethod = "tmoney"
	PaymentFlooz       PaymentMethod = "flooz"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentBankCard    PaymentMethod = "bank_card"
	PaymentCash        PaymentMethod = "cash"
)

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case PaymentTMoney, PaymentFlooz, PaymentMobileMoney, PaymentBankCard, PaymentCash:
		return m, nil
	case "":
		return "", fmt.Errorf("%w: payment method is required", ErrInvalidPayment)
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalidPayment, raw)
	}
}

// Backend maps operator wallets onto the backend's mobile_money method.
func (m PaymentMethod) Backend() string {
	switch m {
	case PaymentTMoney, PaymentFlooz:
		return string(PaymentMobileMoney)
	default:
		return string(m)
	}
}

const PaymentStatusCompleted = "completed"

// PaymentRequest asks the confirmation service to settle a booking. Requests with
// the same IdempotencyKey confirm at most once.
type PaymentRequest struct {
	IdempotencyKey string        `json:"-"`
	BookingID      string        `json:"booking_id"`
	Amount         float64       `json:"amount"`
	Method         PaymentMethod `json:"method"`
	Phone          string        `json:"phone"`
}

type PaymentConfirmation struct {
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type PaymentGateway interface {
	Confirm(ctx context.Context, request PaymentRequest) (PaymentConfirmation, error)
}

type PaymentResult struct {
	Draft         BookingDraft  `json:"draft"`
	Method        PaymentMethod `json:"method"`
	Phone         string        `json:"phone"`
	PaymentID     string        `json:"payment_id"`
	TransactionID string        `json:"transaction_id"`
	Booking       BookingRecord `json:"booking"`
	UserID        string        `json:"user_id,omitempty"`
	ConfirmedAt   time.Time     `json:"confirmed_at"`
}
