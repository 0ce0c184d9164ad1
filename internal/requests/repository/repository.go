package repository

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type Request struct {
	Method  string `db:"method"`
	URL     string `db:"url"`
	Status  int    `db:"status"`
	Headers string `db:"headers"`
}

type SqlxRepository struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewSqlxRepository(db *sqlx.DB, logger *slog.Logger) *SqlxRepository {
	return &SqlxRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SqlxRepository) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SqlxRepository) SaveRequest(ctx context.Context, req Request) error {
	const createCmd = `
	INSERT INTO requests (method, url, status, headers)
	VALUES (:method, :url, :status, :headers);`

	_, err := r.db.NamedExecContext(ctx, createCmd, req)
	if err != nil {
		r.logger.Error("save request", slog.String("error", err.Error()))
		return errors.Wrap(err, "failed to save request")
	}

	return nil
}
