package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/video-upload-form/pkg/config"
)

// Schema creates the table backing stored video submissions.
const Schema = `CREATE TABLE IF NOT EXISTS video_submissions (
	id               UUID PRIMARY KEY,
	name             VARCHAR(255) NOT NULL,
	description      TEXT NOT NULL,
	filename         TEXT NOT NULL,
	size_bytes       BIGINT NOT NULL,
	mime_type        TEXT NOT NULL,
	duration_seconds DOUBLE PRECISION,
	file_path        TEXT,
	detected_mime    TEXT,
	status           VARCHAR(16) NOT NULL,
	submitted_at     TIMESTAMPTZ NOT NULL,
	deleted_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_video_submissions_submitted_at ON video_submissions (submitted_at DESC);`

// DSN builds a lib/pq connection string.
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// NewPostgres returns a configured PostgreSQL client with the schema applied.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}
