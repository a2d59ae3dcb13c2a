package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"drravalement/site/internal/models"
)

var ErrQuoteNotFound = errors.New("quote not found")

const quoteColumns = `id, name, email, phone, service, surface_m2, message, status, created_at, updated_at`

type QuoteRepository struct {
	pool *pgxpool.Pool
}

func NewQuoteRepository(pool *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

func (r *QuoteRepository) Create(ctx context.Context, quote models.Quote) error {
	const query = `
		INSERT INTO quotes (
			id, name, email, phone, service, surface_m2, message, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		quote.ID,
		quote.Name,
		quote.Email,
		quote.Phone,
		quote.Service,
		quote.SurfaceM2,
		quote.Message,
		quote.Status,
	)
	return err
}

func (r *QuoteRepository) GetByID(ctx context.Context, id string) (models.Quote, error) {
	return scanQuote(r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
}

// List returns quotes newest first; an empty status lists every quote.
func (r *QuoteRepository) List(ctx context.Context, status models.QuoteStatus, limit, offset int) ([]models.Quote, error) {
	const query = `
		SELECT ` + quoteColumns + `
		FROM quotes
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []models.Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

func (r *QuoteRepository) UpdateStatus(ctx context.Context, id string, status models.QuoteStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE quotes SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrQuoteNotFound
	}
	return nil
}

func (r *QuoteRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrQuoteNotFound
	}
	return nil
}

func scanQuote(row pgx.Row) (models.Quote, error) {
	var quote models.Quote
	if err := row.Scan(
		&quote.ID,
		&quote.Name,
		&quote.Email,
		&quote.Phone,
		&quote.Service,
		&quote.SurfaceM2,
		&quote.Message,
		&quote.Status,
		&quote.CreatedAt,
		&quote.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Quote{}, ErrQuoteNotFound
		}
		return models.Quote{}, err
	}
	return quote, nil
}
