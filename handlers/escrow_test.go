package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"settlement-svc/middleware"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const testJWTSecret = "test-jwt-secret"

func sellerToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	claims["exp"] = time.Now().Add(time.Hour).Unix()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func setupEscrowTest(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	handler := NewEscrowHandler(db, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/seller/escrow", middleware.AuthMiddleware(testJWTSecret), handler.GetSellerEscrow)

	return mock, router
}

func TestEscrowHandler_ScopedToAuthenticatedSeller(t *testing.T) {
	mock, router := setupEscrowTest(t)

	rows := sqlmock.NewRows([]string{"id", "order_id", "amount", "commission", "seller_amount", "payment_type", "release_date", "status", "created_at"}).
		AddRow(1, "o_1", 100.00, 10.00, 90.00, "card", time.Now().Add(7*24*time.Hour), "pending", time.Now())

	mock.ExpectQuery("SELECT e.id, e.order_id, e.amount, e.commission, e.seller_amount").
		WithArgs("s_1").
		WillReturnRows(rows)

	// The seller_id query parameter must be ignored; the query is scoped to
	// the token's identity.
	req := httptest.NewRequest(http.MethodGet, "/seller/escrow?seller_id=s_other", nil)
	req.Header.Set("Authorization", "Bearer "+sellerToken(t, jwt.MapClaims{"user_id": "s_1"}))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestEscrowHandler_StatusFilter(t *testing.T) {
	mock, router := setupEscrowTest(t)

	mock.ExpectQuery("SELECT e.id, e.order_id, e.amount, e.commission, e.seller_amount").
		WithArgs("s_1", "released").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "amount", "commission", "seller_amount", "payment_type", "release_date", "status", "created_at"}))

	req := httptest.NewRequest(http.MethodGet, "/seller/escrow?status=released", nil)
	req.Header.Set("Authorization", "Bearer "+sellerToken(t, jwt.MapClaims{"user_id": "s_1"}))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestEscrowHandler_InvalidStatusFilter(t *testing.T) {
	mock, router := setupEscrowTest(t)

	req := httptest.NewRequest(http.MethodGet, "/seller/escrow?status=bogus", nil)
	req.Header.Set("Authorization", "Bearer "+sellerToken(t, jwt.MapClaims{"user_id": "s_1"}))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}

func TestEscrowHandler_TokenWithoutIdentity(t *testing.T) {
	mock, router := setupEscrowTest(t)

	req := httptest.NewRequest(http.MethodGet, "/seller/escrow", nil)
	req.Header.Set("Authorization", "Bearer "+sellerToken(t, jwt.MapClaims{}))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}
