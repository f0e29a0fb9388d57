package handlers

import (
	"database/sql"
	"net/http"

	"settlement-svc/models"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewEscrowHandler(db *sql.DB, logger *zap.Logger) *EscrowHandler {
	return &EscrowHandler{
		db:     db,
		logger: logger,
	}
}

// GetSellerEscrow lists escrow holds on the authenticated seller's sales.
// The seller identity comes from the verified token, never from the
// request, so one seller cannot read another's holds. An optional status
// query narrows the listing to pending or released funds.
func (h *EscrowHandler) GetSellerEscrow(c *gin.Context) {
	ctx, span := otel.Tracer("settlement-svc").Start(c.Request.Context(), "GetSellerEscrow")
	defer span.End()

	sellerID := c.GetString("user_id")
	if sellerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing user identity"})
		return
	}

	span.SetAttributes(attribute.String("seller.id", sellerID))

	status := c.Query("status")
	if status != "" && status != string(models.EscrowStatusPending) && status != string(models.EscrowStatusReleased) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	query := `SELECT e.id, e.order_id, e.amount, e.commission, e.seller_amount, e.payment_type, e.release_date, e.status, e.created_at
		 FROM escrow e
		 JOIN pending_orders o ON o.id = e.order_id
		 JOIN products p ON p.id = o.product_id
		 WHERE p.seller_id = $1`
	args := []interface{}{sellerID}
	if status != "" {
		query += " AND e.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY e.release_date"

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch escrow holds", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer rows.Close()

	var holds []models.EscrowHold
	for rows.Next() {
		var hold models.EscrowHold
		if err := rows.Scan(&hold.ID, &hold.OrderID, &hold.Amount, &hold.Commission, &hold.SellerAmount, &hold.PaymentType, &hold.ReleaseDate, &hold.Status, &hold.CreatedAt); err != nil {
			span.RecordError(err)
			h.logger.Error("Failed to scan escrow hold", zap.Error(err))
			continue
		}
		holds = append(holds, hold)
	}

	span.SetAttributes(attribute.Int("escrow.count", len(holds)))
	c.JSON(http.StatusOK, holds)
}
