package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"drravalement/site/internal/models"
)

var ErrMediaNotFound = errors.New("media not found")

const mediaColumns = `id, uploaded_by, bucket, object_key, format, mime, size_bytes, alt_text, checksum, signature, created_at`

type MediaRepository struct {
	pool *pgxpool.Pool
}

func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

func (r *MediaRepository) Create(ctx context.Context, media models.Media) error {
	const query = `
		INSERT INTO media (
			id, uploaded_by, bucket, object_key, format, mime, size_bytes, alt_text, checksum, signature, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.pool.Exec(ctx, query,
		media.ID,
		media.UploadedBy,
		media.Bucket,
		media.ObjectKey,
		media.Format,
		media.MIME,
		media.SizeBytes,
		media.AltText,
		media.Checksum,
		media.Signature,
		media.CreatedAt,
	)
	return err
}

func (r *MediaRepository) GetByID(ctx context.Context, id string) (models.Media, error) {
	return scanMedia(r.pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
}

func (r *MediaRepository) List(ctx context.Context, limit, offset int) ([]models.Media, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+mediaColumns+` FROM media ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Media
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, media)
	}
	return items, rows.Err()
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMediaNotFound
	}
	return nil
}

func scanMedia(row pgx.Row) (models.Media, error) {
	var media models.Media
	if err := row.Scan(
		&media.ID,
		&media.UploadedBy,
		&media.Bucket,
		&media.ObjectKey,
		&media.Format,
		&media.MIME,
		&media.SizeBytes,
		&media.AltText,
		&media.Checksum,
		&media.Signature,
		&media.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Media{}, ErrMediaNotFound
		}
		return models.Media{}, err
	}
	return media, nil
}
