// Package settlement advances orders through their payment lifecycle in
// response to verified provider webhook events. Every transition writes its
// records inside a single database transaction, and the unique constraints
// on provider-side ids make redelivered events no-ops.
package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"settlement-svc/escrow"
	"settlement-svc/kafka"
	"settlement-svc/models"

	"github.com/IBM/sarama"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	paymentType   = "card"
	paymentMethod = "hyperswitch"
)

// ErrDuplicateEvent marks a redelivered or stale event whose effects are
// already committed. Callers acknowledge it to the provider instead of
// surfacing an error.
var ErrDuplicateEvent = errors.New("event already processed")

type Service struct {
	db       *sql.DB
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(db *sql.DB, producer sarama.SyncProducer, topic string, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		producer: producer,
		topic:    topic,
		logger:   logger,
		now:      time.Now,
	}
}

// HandlePaymentSucceeded moves an order to paid and records the ledger entry
// and escrow hold. All three writes commit together or not at all. A
// redelivered event trips the external_transaction_id unique constraint and
// is acknowledged without a second ledger row.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, p models.PaymentEventPayload) error {
	ctx, span := otel.Tracer("settlement-svc").Start(ctx, "HandlePaymentSucceeded")
	defer span.End()

	span.SetAttributes(
		attribute.String("order.id", p.OrderID),
		attribute.String("payment_intent.id", p.PaymentIntentID),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	paidAt := s.now()

	var total float64
	err = tx.QueryRowContext(ctx,
		"UPDATE pending_orders SET status = $1, payment_intent_id = $2, paid_at = $3, updated_at = $3 WHERE id = $4 RETURNING total",
		models.OrderStatusPaid, p.PaymentIntentID, paidAt, p.OrderID,
	).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("order update failed: no order with id %s", p.OrderID)
		}
		span.RecordError(err)
		return fmt.Errorf("order update failed: %w", err)
	}

	span.SetAttributes(attribute.Float64("order.total", total))

	_, err = tx.ExecContext(ctx,
		"INSERT INTO transactions (order_id, amount, payment_type, payment_method, status, external_transaction_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		p.OrderID, total, paymentType, paymentMethod, models.TransactionStatusCompleted, p.PaymentIntentID, paidAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Redelivery: the ledger entry already exists, so roll back the
			// order update too and tell the provider we are done.
			s.logger.Info("Payment already settled, skipping",
				zap.String("order_id", p.OrderID),
				zap.String("payment_intent_id", p.PaymentIntentID),
			)
			return ErrDuplicateEvent
		}
		span.RecordError(err)
		return fmt.Errorf("transaction creation failed: %w", err)
	}

	commission, sellerAmount := escrow.Split(total)
	releaseDate := escrow.ReleaseDate(paidAt)

	_, err = tx.ExecContext(ctx,
		"INSERT INTO escrow (order_id, amount, commission, seller_amount, payment_type, release_date, status) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		p.OrderID, total, commission, sellerAmount, paymentType, releaseDate, models.EscrowStatusPending,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("escrow creation failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	s.logger.Info("Order settled",
		zap.String("order_id", p.OrderID),
		zap.String("payment_intent_id", p.PaymentIntentID),
		zap.Float64("total", total),
		zap.Float64("commission", commission),
		zap.Float64("seller_amount", sellerAmount),
		zap.Time("release_date", releaseDate),
	)

	s.publish(ctx, models.OrderEvent{
		OrderID:   p.OrderID,
		Status:    models.OrderStatusPaid,
		Total:     total,
		EventType: "order_paid",
	})

	return nil
}

// HandlePaymentFailed marks a pending order as failed. Terminal states are
// sticky: a failure arriving after the order was already paid is treated as
// stale and acknowledged without touching the row.
func (s *Service) HandlePaymentFailed(ctx context.Context, p models.PaymentEventPayload) error {
	ctx, span := otel.Tracer("settlement-svc").Start(ctx, "HandlePaymentFailed")
	defer span.End()

	span.SetAttributes(
		attribute.String("order.id", p.OrderID),
		attribute.String("payment_intent.id", p.PaymentIntentID),
	)

	result, err := s.db.ExecContext(ctx,
		"UPDATE pending_orders SET status = $1, payment_intent_id = $2, error_message = $3, updated_at = $4 WHERE id = $5 AND status = $6",
		models.OrderStatusPaymentFailed, p.PaymentIntentID, p.ErrorMessage, s.now(), p.OrderID, models.OrderStatusPending,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if rows == 0 {
		var status models.OrderStatus
		err := s.db.QueryRowContext(ctx,
			"SELECT status FROM pending_orders WHERE id = $1", p.OrderID,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to update order status: no order with id %s", p.OrderID)
			}
			span.RecordError(err)
			return fmt.Errorf("failed to update order status: %w", err)
		}
		// Already in a terminal state; the provider is replaying history.
		s.logger.Info("Stale payment_failed event ignored",
			zap.String("order_id", p.OrderID),
			zap.String("order_status", string(status)),
		)
		return ErrDuplicateEvent
	}

	s.logger.Info("Order marked payment_failed",
		zap.String("order_id", p.OrderID),
		zap.String("payment_intent_id", p.PaymentIntentID),
		zap.String("error_message", p.ErrorMessage),
	)

	s.publish(ctx, models.OrderEvent{
		OrderID:   p.OrderID,
		Status:    models.OrderStatusPaymentFailed,
		EventType: "payment_failed",
	})

	return nil
}

// HandleRefund records a reversal against the transaction whose external id
// matches the event's payment intent. The order row is left untouched.
func (s *Service) HandleRefund(ctx context.Context, p models.RefundEventPayload) error {
	ctx, span := otel.Tracer("settlement-svc").Start(ctx, "HandleRefund")
	defer span.End()

	span.SetAttributes(
		attribute.String("refund.id", p.RefundID),
		attribute.String("payment_intent.id", p.PaymentIntentID),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var txn models.Transaction
	err = tx.QueryRowContext(ctx,
		"SELECT id, order_id FROM transactions WHERE external_transaction_id = $1",
		p.PaymentIntentID,
	).Scan(&txn.ID, &txn.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction lookup failed: no transaction for payment intent %s", p.PaymentIntentID)
		}
		span.RecordError(err)
		return fmt.Errorf("transaction lookup failed: %w", err)
	}

	refund := models.Refund{
		TransactionID: txn.ID,
		// Provider amounts arrive in minor units.
		Amount:    float64(p.AmountMinor) / 100,
		RefundID:  p.RefundID,
		Status:    "completed",
		CreatedAt: s.now(),
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO refunds (transaction_id, amount, refund_id, status, created_at) VALUES ($1, $2, $3, $4, $5)",
		refund.TransactionID, refund.Amount, refund.RefundID, refund.Status, refund.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.Info("Refund already recorded, skipping",
				zap.String("refund_id", p.RefundID),
			)
			return ErrDuplicateEvent
		}
		span.RecordError(err)
		return fmt.Errorf("refund recording failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit refund: %w", err)
	}

	s.logger.Info("Refund recorded",
		zap.String("refund_id", refund.RefundID),
		zap.Int("transaction_id", refund.TransactionID),
		zap.Float64("amount", refund.Amount),
	)

	s.publish(ctx, models.OrderEvent{
		OrderID:   txn.OrderID,
		Status:    models.OrderStatusPaid,
		Total:     refund.Amount,
		EventType: "refund_recorded",
	})

	return nil
}

// publish is best-effort: settlement already committed, so a bus outage
// must not turn into a webhook failure and a provider retry.
func (s *Service) publish(ctx context.Context, event models.OrderEvent) {
	if s.producer == nil {
		return
	}
	if err := kafka.PublishOrderEvent(ctx, s.producer, s.topic, event, s.logger); err != nil {
		s.logger.Error("Failed to publish settlement event",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
