package models

import "time"

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is an immutable ledger entry for one completed payment.
// external_transaction_id carries the provider's payment intent id and is
// unique, which is what makes webhook redelivery safe.
type Transaction struct {
	ID                    int               `json:"id"`
	OrderID               string            `json:"order_id"`
	Amount                float64           `json:"amount"`
	PaymentType           string            `json:"payment_type"`
	PaymentMethod         string            `json:"payment_method"`
	Status                TransactionStatus `json:"status"`
	ExternalTransactionID string            `json:"external_transaction_id"`
	CreatedAt             time.Time         `json:"created_at"`
}

type EscrowStatus string

const (
	EscrowStatusPending  EscrowStatus = "pending"
	EscrowStatusReleased EscrowStatus = "released"
)

// EscrowHold represents funds withheld from the seller for the cooling-off
// period after a sale. Release is driven by an external batch job; this
// service only seeds the row.
type EscrowHold struct {
	ID           int          `json:"id"`
	OrderID      string       `json:"order_id"`
	Amount       float64      `json:"amount"`
	Commission   float64      `json:"commission"`
	SellerAmount float64      `json:"seller_amount"`
	PaymentType  string       `json:"payment_type"`
	ReleaseDate  time.Time    `json:"release_date"`
	Status       EscrowStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Refund records a reversal of a prior Transaction. Amount is stored in
// major currency units.
type Refund struct {
	ID            int       `json:"id"`
	TransactionID int       `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	RefundID      string    `json:"refund_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
