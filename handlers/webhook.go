package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"settlement-svc/middleware"
	"settlement-svc/models"
	"settlement-svc/settlement"
	"settlement-svc/signature"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	settlement *settlement.Service
	secret     string
	logger     *zap.Logger
}

func NewWebhookHandler(settlement *settlement.Service, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		settlement: settlement,
		secret:     secret,
		logger:     logger,
	}
}

// MethodNotAllowed is installed as the router's NoMethod handler so the
// provider gets the agreed 405 body on anything but POST.
func MethodNotAllowed(c *gin.Context) {
	c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
}

// HandleWebhook receives provider callbacks. Order matters: the signature is
// checked against the raw body before parsing, and parsing happens before
// any handler runs, so nothing is mutated for forged or malformed requests.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	ctx, span := otel.Tracer("settlement-svc").Start(c.Request.Context(), "HandleWebhook")
	defer span.End()

	body, err := c.GetRawData()
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sig := c.GetHeader(signature.Header)
	if !signature.Verify(body, sig, h.secret) {
		span.SetAttributes(attribute.Bool("signature.valid", false))
		h.logger.Warn("Webhook signature verification failed",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("ip", c.ClientIP()),
		)
		c.String(http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.String("event.type", event.Type))

	var handlerErr error
	switch event.Type {
	case models.EventPaymentSucceeded:
		p, err := event.PaymentPayload()
		if err != nil {
			handlerErr = err
			break
		}
		handlerErr = h.settlement.HandlePaymentSucceeded(ctx, p)

	case models.EventPaymentFailed:
		p, err := event.PaymentPayload()
		if err != nil {
			handlerErr = err
			break
		}
		handlerErr = h.settlement.HandlePaymentFailed(ctx, p)

	case models.EventRefundSucceeded:
		p, err := event.RefundPayload()
		if err != nil {
			handlerErr = err
			break
		}
		handlerErr = h.settlement.HandleRefund(ctx, p)

	default:
		// Acknowledge so the provider doesn't retry events we ignore on purpose.
		h.logger.Info("Unhandled webhook event",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("type", event.Type),
		)
		middleware.RecordWebhookEvent(event.Type, "ignored")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if errors.Is(handlerErr, settlement.ErrDuplicateEvent) {
		// Already settled on an earlier delivery; acknowledge so the
		// provider stops retrying.
		middleware.RecordWebhookEvent(event.Type, "duplicate")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if handlerErr != nil {
		span.RecordError(handlerErr)
		h.logger.Error("Webhook handler failed",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("type", event.Type),
			zap.Error(handlerErr),
		)
		middleware.RecordWebhookEvent(event.Type, "error")
		c.JSON(http.StatusBadRequest, gin.H{"error": handlerErr.Error()})
		return
	}

	middleware.RecordWebhookEvent(event.Type, "processed")
	c.JSON(http.StatusOK, gin.H{"received": true})
}
