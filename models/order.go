package models

import "time"

type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusPaid          OrderStatus = "paid"
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
)

type Order struct {
	ID              string      `json:"id"`
	BuyerID         string      `json:"buyer_id"`
	ProductID       int         `json:"product_id"`
	Quantity        int         `json:"quantity"`
	Status          OrderStatus `json:"status"`
	Total           float64     `json:"total"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type CreateOrderRequest struct {
	BuyerID   string `json:"buyer_id" binding:"required"`
	ProductID int    `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type OrderEvent struct {
	OrderID   string      `json:"order_id"`
	BuyerID   string      `json:"buyer_id"`
	ProductID int         `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Status    OrderStatus `json:"status"`
	Total     float64     `json:"total"`
	EventType string      `json:"event_type"` // order_created, order_paid, payment_failed, refund_recorded
}
