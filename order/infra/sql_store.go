package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"order-gateway/order/domain"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect escolhe placeholders e tipos do CREATE TABLE.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore grava cada pedido aceito como uma linha com o payload sanitizado em JSON.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLStore abre a conexão pelo driver e aplica a migração.
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	var driver string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
	case DialectPostgres:
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported store dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// sqlite serializa escritas; uma conexão evita "database is locked"
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	s, err := NewSQLStore(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate orders: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	payloadType := "TEXT"
	tsType := "DATETIME"
	if s.dialect == DialectPostgres {
		payloadType = "JSONB"
		tsType = "TIMESTAMPTZ"
	}
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		variant TEXT NOT NULL,
		client_ip TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		payload %s NOT NULL,
		created_at %s NOT NULL
	);`, payloadType, tsType)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *SQLStore) insertQuery() string {
	if s.dialect == DialectPostgres {
		return `INSERT INTO orders (id, order_id, variant, client_ip, submitted_at, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	}
	return `INSERT INTO orders (id, order_id, variant, client_ip, submitted_at, payload, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
}

// Save implementa application.OrderStore.
func (s *SQLStore) Save(ctx context.Context, order domain.SanitizedOrder) error {
	payload, err := domain.MarshalIndent(order.Fields, "")
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.OrderID, err)
	}

	createdAt := order.ReceivedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, s.insertQuery(),
		uuid.NewString(),
		order.OrderID,
		order.Variant,
		order.ClientIP,
		order.SubmittedAt,
		string(payload),
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.OrderID, err)
	}
	return nil
}

// Count devolve o total de pedidos gravados.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}

func (s *SQLStore) Close() error { return s.db.Close() }
