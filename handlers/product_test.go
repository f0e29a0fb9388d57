package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"settlement-svc/circuitbreaker"
	"settlement-svc/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// fakeProductCache is an in-memory ProductCache for tests.
type fakeProductCache struct {
	entries map[string][]byte
	sets    []string
}

func newFakeProductCache() *fakeProductCache {
	return &fakeProductCache{entries: make(map[string][]byte)}
}

func (f *fakeProductCache) GetProduct(_ context.Context, id string) ([]byte, error) {
	data, ok := f.entries[id]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return data, nil
}

func (f *fakeProductCache) SetProduct(_ context.Context, id string, product interface{}, _ time.Duration) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	f.entries[id] = data
	f.sets = append(f.sets, id)
	return nil
}

func setupProductTest(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	// Redis is optional in the handler; with a nil client every read goes to
	// the database.
	handler := NewProductHandler(db, nil, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/products", handler.GetProducts)
	router.GET("/products/:id", handler.GetProduct)

	return mock, router
}

func TestProductHandler_GetProducts_Success(t *testing.T) {
	mock, router := setupProductTest(t)

	rows := sqlmock.NewRows([]string{"id", "seller_id", "name", "price", "stock", "created_at", "updated_at"}).
		AddRow(1, "s_1", "Lamp", 10.99, 5, time.Now(), time.Now()).
		AddRow(2, "s_2", "Desk", 120.00, 2, time.Now(), time.Now())

	mock.ExpectQuery("SELECT id, seller_id, name, price, stock, created_at, updated_at FROM products ORDER BY id").
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductHandler_GetProduct_Success(t *testing.T) {
	mock, router := setupProductTest(t)

	rows := sqlmock.NewRows([]string{"id", "seller_id", "name", "price", "stock", "created_at", "updated_at"}).
		AddRow(1, "s_1", "Lamp", 10.99, 5, time.Now(), time.Now())

	mock.ExpectQuery("SELECT id, seller_id, name, price, stock, created_at, updated_at FROM products WHERE id = \\$1").
		WithArgs("1").
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductHandler_GetProduct_NotFound(t *testing.T) {
	mock, router := setupProductTest(t)

	mock.ExpectQuery("SELECT id, seller_id, name, price, stock, created_at, updated_at FROM products WHERE id = \\$1").
		WithArgs("999").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/products/999", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductHandler_GetProduct_CacheHitSkipsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache := newFakeProductCache()
	product := models.Product{ID: 1, SellerID: "s_1", Name: "Lamp", Price: 10.99, Stock: 5}
	data, err := json.Marshal(product)
	if err != nil {
		t.Fatalf("Failed to marshal product: %v", err)
	}
	cache.entries["1"] = data

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	handler := NewProductHandler(db, cache, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/products/:id", handler.GetProduct)

	// No query expectations are registered: any database call would fail
	// the request and the expectation check below.
	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Lamp") {
		t.Errorf("Expected cached product in response, got %s", w.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database calls were made: %v", err)
	}
}

func TestProductHandler_GetProduct_CacheMissPopulatesCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache := newFakeProductCache()
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	handler := NewProductHandler(db, cache, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/products/:id", handler.GetProduct)

	rows := sqlmock.NewRows([]string{"id", "seller_id", "name", "price", "stock", "created_at", "updated_at"}).
		AddRow(1, "s_1", "Lamp", 10.99, 5, time.Now(), time.Now())

	mock.ExpectQuery("SELECT id, seller_id, name, price, stock, created_at, updated_at FROM products WHERE id = \\$1").
		WithArgs("1").
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if len(cache.sets) != 1 || cache.sets[0] != "1" {
		t.Errorf("Expected product 1 to be cached, got sets %v", cache.sets)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestProductHandler_GetProduct_CircuitOpenReturns503(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	handler := NewProductHandler(db, nil, logger)
	handler.circuitBreaker = circuitbreaker.NewCircuitBreaker(1, time.Minute)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/products/:id", handler.GetProduct)

	mock.ExpectQuery("SELECT id, seller_id, name, price, stock, created_at, updated_at FROM products WHERE id = \\$1").
		WithArgs("1").
		WillReturnError(errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d on database failure, got %d", http.StatusInternalServerError, w.Code)
	}

	// The breaker is now open; the next request must be rejected without
	// touching the database.
	req = httptest.NewRequest(http.MethodGet, "/products/1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d from open circuit, got %d: %s", http.StatusServiceUnavailable, w.Code, w.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
