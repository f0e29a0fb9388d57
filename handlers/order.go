package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"settlement-svc/kafka"
	"settlement-svc/models"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderHandler struct {
	db       *sql.DB
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewOrderHandler(db *sql.DB, producer sarama.SyncProducer, topic string, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		db:       db,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// CreateOrder is the checkout entry point. The order starts out pending;
// only the payment webhook moves it further.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("settlement-svc").Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("buyer_id", req.BuyerID),
		attribute.Int("product_id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
	)

	var price float64
	var stock int
	err := h.db.QueryRowContext(ctx,
		"SELECT price, stock FROM products WHERE id = $1",
		req.ProductID,
	).Scan(&price, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to check product availability", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if stock < req.Quantity {
		span.SetAttributes(attribute.Bool("available", false))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Product not available",
			"stock": stock,
		})
		return
	}

	total := float64(req.Quantity) * price

	var order models.Order
	err = h.db.QueryRowContext(ctx,
		"INSERT INTO pending_orders (id, buyer_id, product_id, quantity, status, total) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, buyer_id, product_id, quantity, status, total, created_at, updated_at",
		uuid.NewString(), req.BuyerID, req.ProductID, req.Quantity, models.OrderStatusPending, total,
	).Scan(&order.ID, &order.BuyerID, &order.ProductID, &order.Quantity, &order.Status, &order.Total, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to create order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.String("order.id", order.ID))

	if h.producer != nil {
		event := models.OrderEvent{
			OrderID:   order.ID,
			BuyerID:   order.BuyerID,
			ProductID: order.ProductID,
			Quantity:  order.Quantity,
			Status:    order.Status,
			Total:     order.Total,
			EventType: "order_created",
		}
		if err := kafka.PublishOrderEvent(ctx, h.producer, h.topic, event, h.logger); err != nil {
			h.logger.Error("Failed to publish order_created event", zap.Error(err))
			// Don't fail the request, but log the error
		}
	}

	h.logger.Info("Order created", zap.String("order_id", order.ID), zap.Float64("total", order.Total))
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("settlement-svc").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	orderID := c.Param("id")
	span.SetAttributes(attribute.String("order.id", orderID))

	var order models.Order
	var paymentIntentID, errorMessage sql.NullString
	var paidAt sql.NullTime
	err := h.db.QueryRowContext(ctx,
		"SELECT id, buyer_id, product_id, quantity, status, total, payment_intent_id, error_message, paid_at, created_at, updated_at FROM pending_orders WHERE id = $1",
		orderID,
	).Scan(&order.ID, &order.BuyerID, &order.ProductID, &order.Quantity, &order.Status, &order.Total, &paymentIntentID, &errorMessage, &paidAt, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to get order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	order.PaymentIntentID = paymentIntentID.String
	order.ErrorMessage = errorMessage.String
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}

	c.JSON(http.StatusOK, order)
}
