package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/juju/clock"
	"github.com/lib/pq"

	"storefront-service/internal/config"
)

// Predefined errors for store operations
var (
	ErrOrderNotFound        = errors.New("store: order not found")
	ErrTrackingIDConflict   = errors.New("store: tracking id already in use")
	ErrProductNotFound      = errors.New("store: product not found")
	ErrProductSlugExists    = errors.New("store: product slug already exists")
	ErrCategoryNotFound     = errors.New("store: category not found")
	ErrCategorySlugExists   = errors.New("store: category slug already exists")
	ErrInvalidCategorySlugs = errors.New("store: invalid category slugs")
	ErrUserNotFound         = errors.New("store: user not found")
	ErrUserExists           = errors.New("store: user already exists")
)

const uniqueViolation = "23505"

// PostgresStore implements every storer interface on top of one process-wide pool.
type PostgresStore struct {
	db            *sql.DB
	clock         clock.Clock
	newTrackingID func() (int64, error)
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB, clk clock.Clock) *PostgresStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &PostgresStore{db: db, clock: clk, newTrackingID: GenerateTrackingID}
}

// Open creates the connection pool, sizes it and checks it is reachable.
func Open(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to ping database: %w", err)
	}
	return db, nil
}

// WithTransaction runs work inside one transaction on one exclusive connection.
// work's error (or panic) rolls the transaction back; the connection is always
// returned to the pool. Calls must not be nested.
func (s *PostgresStore) WithTransaction(ctx context.Context, work func(tx *sql.Tx) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("store: failed to acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = work(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("WARN: Rollback failed after %v: %v", err, rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks the pool can reach the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		log.Println("INFO: Closing database connection pool...")
		err := s.db.Close()
		if err != nil {
			log.Printf("ERROR: Failed to close database connection pool: %v", err)
			return err
		}
		log.Println("INFO: Database connection pool closed successfully.")
		return nil
	}
	return nil
}

// isUniqueViolation reports whether err is a unique violation, optionally on a named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || strings.Contains(pqErr.Constraint, constraint)
}
