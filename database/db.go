package database

import (
	"database/sql"
	"fmt"

	"settlement-svc/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func InitDB(cfg config.Config, logger *zap.Logger) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The UNIQUE constraints on external_transaction_id and refund_id are
	// what make webhook redelivery idempotent.
	createTableQuery := `
	CREATE TABLE IF NOT EXISTS products (
		id SERIAL PRIMARY KEY,
		seller_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(10, 2) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pending_orders (
		id VARCHAR(64) PRIMARY KEY,
		buyer_id VARCHAR(64) NOT NULL,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'pending',
		total DECIMAL(10, 2) NOT NULL,
		payment_intent_id VARCHAR(255),
		error_message TEXT,
		paid_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id SERIAL PRIMARY KEY,
		order_id VARCHAR(64) NOT NULL,
		amount DECIMAL(10, 2) NOT NULL,
		payment_type VARCHAR(50) NOT NULL,
		payment_method VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL,
		external_transaction_id VARCHAR(255) NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS escrow (
		id SERIAL PRIMARY KEY,
		order_id VARCHAR(64) NOT NULL,
		amount DECIMAL(10, 2) NOT NULL,
		commission DECIMAL(10, 2) NOT NULL,
		seller_amount DECIMAL(10, 2) NOT NULL,
		payment_type VARCHAR(50) NOT NULL,
		release_date TIMESTAMP NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS refunds (
		id SERIAL PRIMARY KEY,
		transaction_id INTEGER NOT NULL REFERENCES transactions(id),
		amount DECIMAL(10, 2) NOT NULL,
		refund_id VARCHAR(255) NOT NULL UNIQUE,
		status VARCHAR(50) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := db.Exec(createTableQuery); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}
