package models

import "errors"

// Recognized webhook event types. Anything else is acknowledged and ignored.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.failed"
	EventRefundSucceeded  = "refund.succeeded"
)

// WebhookEvent is the provider's callback envelope.
type WebhookEvent struct {
	Type string           `json:"type"`
	Data WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	PaymentIntent *PaymentIntentRef `json:"payment_intent,omitempty"`
	Metadata      *OrderMetadata    `json:"metadata,omitempty"`
	Refund        *RefundRef        `json:"refund,omitempty"`
	Error         *ProviderError    `json:"error,omitempty"`
}

type PaymentIntentRef struct {
	ID string `json:"id"`
}

type OrderMetadata struct {
	OrderID string `json:"order_id"`
}

type RefundRef struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"` // minor currency units
}

type ProviderError struct {
	Message string `json:"message"`
}

// PaymentEventPayload is the validated shape shared by the succeeded and
// failed payment events.
type PaymentEventPayload struct {
	PaymentIntentID string
	OrderID         string
	ErrorMessage    string
}

// RefundEventPayload is the validated shape of a refund.succeeded event.
type RefundEventPayload struct {
	RefundID        string
	AmountMinor     int64
	PaymentIntentID string
}

// PaymentPayload validates and extracts the fields the payment handlers
// require. Malformed payloads are rejected here, before any store access.
func (e WebhookEvent) PaymentPayload() (PaymentEventPayload, error) {
	var p PaymentEventPayload
	if e.Data.PaymentIntent == nil || e.Data.PaymentIntent.ID == "" {
		return p, errors.New("missing payment_intent.id")
	}
	if e.Data.Metadata == nil || e.Data.Metadata.OrderID == "" {
		return p, errors.New("missing metadata.order_id")
	}
	p.PaymentIntentID = e.Data.PaymentIntent.ID
	p.OrderID = e.Data.Metadata.OrderID
	if e.Data.Error != nil {
		p.ErrorMessage = e.Data.Error.Message
	}
	return p, nil
}

// RefundPayload validates and extracts the fields the refund handler requires.
func (e WebhookEvent) RefundPayload() (RefundEventPayload, error) {
	var p RefundEventPayload
	if e.Data.Refund == nil || e.Data.Refund.ID == "" {
		return p, errors.New("missing refund.id")
	}
	if e.Data.Refund.Amount <= 0 {
		return p, errors.New("missing or invalid refund.amount")
	}
	if e.Data.PaymentIntent == nil || e.Data.PaymentIntent.ID == "" {
		return p, errors.New("missing payment_intent.id")
	}
	p.RefundID = e.Data.Refund.ID
	p.AmountMinor = e.Data.Refund.Amount
	p.PaymentIntentID = e.Data.PaymentIntent.ID
	return p, nil
}
