package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const insertPost = "INSERT INTO posts (raw_input, status, created_at) VALUES (?, ?, ?)"

// DBQueue enqueues payloads directly into the downstream writer's posts table.
// The downstream worker picks queued rows up on its own schedule.
type DBQueue struct {
	db  *sql.DB
	now func() time.Time
}

var _ Submitter = (*DBQueue)(nil)

// OpenDBQueue connects to the downstream MySQL database.
func OpenDBQueue(dsn string) (*DBQueue, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return NewDBQueue(db), nil
}

// NewDBQueue wraps an existing connection pool.
func NewDBQueue(db *sql.DB) *DBQueue {
	return &DBQueue{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Submit inserts payload as a queued post and returns its row ID.
func (q *DBQueue) Submit(ctx context.Context, payload *Payload) (*Result, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	res, err := q.db.ExecContext(ctx, insertPost, string(raw), "queued", q.now().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, fmt.Errorf("queue enqueue failed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("queue enqueue failed: %w", err)
	}
	return &Result{PostID: &id, Status: "queued"}, nil
}

// Close releases the connection pool.
func (q *DBQueue) Close() error {
	return q.db.Close()
}
