package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docvault/docvault/internal/models"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sourceColumns = `id, type, label, enabled, document_type_id, uncompress,
	folder_path, delete_after_upload, preview_width, preview_height,
	interval_seconds, host, port, ssl, username, password, mailbox, timeout_seconds`

func (r *PostgresRepository) Create(ctx context.Context, s *models.Source) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO sources (id, type, label, enabled, document_type_id, uncompress,
		    folder_path, delete_after_upload, preview_width, preview_height,
		    interval_seconds, host, port, ssl, username, password, mailbox, timeout_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		s.ID, s.Type, s.Label, s.Enabled, s.DocumentTypeID, s.Uncompress,
		s.FolderPath, s.DeleteAfterUpload, s.PreviewWidth, s.PreviewHeight,
		s.IntervalSeconds, s.Host, s.Port, s.SSL, s.Username, s.Password, s.Mailbox, s.TimeoutSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Source, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)
	return scanSource(row)
}

func (r *PostgresRepository) Update(ctx context.Context, s *models.Source) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sources SET type = $2, label = $3, enabled = $4, document_type_id = $5,
		    uncompress = $6, folder_path = $7, delete_after_upload = $8,
		    preview_width = $9, preview_height = $10, interval_seconds = $11,
		    host = $12, port = $13, ssl = $14, username = $15, password = $16,
		    mailbox = $17, timeout_seconds = $18
		 WHERE id = $1`,
		s.ID, s.Type, s.Label, s.Enabled, s.DocumentTypeID, s.Uncompress,
		s.FolderPath, s.DeleteAfterUpload, s.PreviewWidth, s.PreviewHeight,
		s.IntervalSeconds, s.Host, s.Port, s.SSL, s.Username, s.Password, s.Mailbox, s.TimeoutSeconds,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Source, error) {
	return r.list(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY label`)
}

func (r *PostgresRepository) ListInterval(ctx context.Context) ([]models.Source, error) {
	return r.list(ctx,
		`SELECT `+sourceColumns+` FROM sources
		 WHERE enabled AND type IN ($1, $2, $3) ORDER BY label`,
		models.SourceWatchFolder, models.SourcePOP3Email, models.SourceIMAPEmail,
	)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Source, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var result []models.Source
	for rows.Next() {
		var s models.Source
		if err := rows.Scan(&s.ID, &s.Type, &s.Label, &s.Enabled, &s.DocumentTypeID, &s.Uncompress,
			&s.FolderPath, &s.DeleteAfterUpload, &s.PreviewWidth, &s.PreviewHeight,
			&s.IntervalSeconds, &s.Host, &s.Port, &s.SSL, &s.Username, &s.Password, &s.Mailbox, &s.TimeoutSeconds); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func scanSource(row pgx.Row) (*models.Source, error) {
	var s models.Source
	err := row.Scan(&s.ID, &s.Type, &s.Label, &s.Enabled, &s.DocumentTypeID, &s.Uncompress,
		&s.FolderPath, &s.DeleteAfterUpload, &s.PreviewWidth, &s.PreviewHeight,
		&s.IntervalSeconds, &s.Host, &s.Port, &s.SSL, &s.Username, &s.Password, &s.Mailbox, &s.TimeoutSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	return &s, nil
}

type PostgresLogRepository struct {
	db *pgxpool.Pool
}

func NewPostgresLogRepository(db *pgxpool.Pool) *PostgresLogRepository {
	return &PostgresLogRepository{db: db}
}

func (r *PostgresLogRepository) Append(ctx context.Context, sourceID uuid.UUID, message string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO source_logs (source_id, message) VALUES ($1, $2)`,
		sourceID, message,
	)
	if err != nil {
		return fmt.Errorf("insert source log: %w", err)
	}
	return nil
}

func (r *PostgresLogRepository) List(ctx context.Context, sourceID uuid.UUID, limit int) ([]models.SourceLog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, source_id, datetime, message FROM source_logs
		 WHERE source_id = $1 ORDER BY datetime DESC LIMIT $2`,
		sourceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list source logs: %w", err)
	}
	defer rows.Close()

	var result []models.SourceLog
	for rows.Next() {
		var entry models.SourceLog
		if err := rows.Scan(&entry.ID, &entry.SourceID, &entry.DateTime, &entry.Message); err != nil {
			return nil, fmt.Errorf("scan source log: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
