package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docvault/docvault/internal/models"
)

type PostgresDocumentTypeRepository struct {
	db *pgxpool.Pool
}

func NewPostgresDocumentTypeRepository(db *pgxpool.Pool) *PostgresDocumentTypeRepository {
	return &PostgresDocumentTypeRepository{db: db}
}

func (r *PostgresDocumentTypeRepository) Create(ctx context.Context, dt *models.DocumentType) error {
	if dt.ID == uuid.Nil {
		dt.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO document_types (id, name, trash_time_period, trash_time_unit, delete_time_period, delete_time_unit)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		dt.ID, dt.Name, dt.TrashTimePeriod, dt.TrashTimeUnit, dt.DeleteTimePeriod, dt.DeleteTimeUnit,
	).Scan(&dt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document type: %w", err)
	}
	return nil
}

func (r *PostgresDocumentTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentType, error) {
	return r.get(ctx, "id", id)
}

func (r *PostgresDocumentTypeRepository) GetByName(ctx context.Context, name string) (*models.DocumentType, error) {
	return r.get(ctx, "name", name)
}

func (r *PostgresDocumentTypeRepository) get(ctx context.Context, column string, value any) (*models.DocumentType, error) {
	var dt models.DocumentType
	err := r.db.QueryRow(ctx,
		`SELECT id, name, trash_time_period, trash_time_unit, delete_time_period, delete_time_unit, created_at
		 FROM document_types WHERE `+column+` = $1`,
		value,
	).Scan(&dt.ID, &dt.Name, &dt.TrashTimePeriod, &dt.TrashTimeUnit, &dt.DeleteTimePeriod, &dt.DeleteTimeUnit, &dt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document type: %w", err)
	}
	return &dt, nil
}

func (r *PostgresDocumentTypeRepository) List(ctx context.Context) ([]models.DocumentType, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, trash_time_period, trash_time_unit, delete_time_period, delete_time_unit, created_at
		 FROM document_types ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	defer rows.Close()

	var result []models.DocumentType
	for rows.Next() {
		var dt models.DocumentType
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.TrashTimePeriod, &dt.TrashTimeUnit, &dt.DeleteTimePeriod, &dt.DeleteTimeUnit, &dt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		result = append(result, dt)
	}
	return result, rows.Err()
}

func (r *PostgresDocumentTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM document_types WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type PostgresDocumentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresDocumentRepository(db *pgxpool.Pool) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

const documentColumns = `id, document_type_id, label, description, language, in_trash, deleted_date_time, is_stub, date_added`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.DocumentTypeID, &d.Label, &d.Description, &d.Language, &d.InTrash, &d.DeletedDateTime, &d.IsStub, &d.DateAdded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}

func (r *PostgresDocumentRepository) Create(ctx context.Context, d *models.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO documents (id, document_type_id, label, description, language)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING in_trash, is_stub, date_added`,
		d.ID, d.DocumentTypeID, d.Label, d.Description, d.Language,
	).Scan(&d.InTrash, &d.IsStub, &d.DateAdded)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

func (r *PostgresDocumentRepository) Update(ctx context.Context, d *models.Document) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET document_type_id = $2, label = $3, description = $4, language = $5,
		     in_trash = $6, deleted_date_time = $7, is_stub = $8
		 WHERE id = $1`,
		d.ID, d.DocumentTypeID, d.Label, d.Description, d.Language, d.InTrash, d.DeletedDateTime, d.IsStub,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDocumentRepository) List(ctx context.Context, inTrash bool) ([]models.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE in_trash = $1 ORDER BY date_added DESC`,
		inTrash,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func (r *PostgresDocumentRepository) ListExpired(ctx context.Context, documentTypeID uuid.UUID, inTrash bool, cutoff time.Time) ([]models.Document, error) {
	timeColumn := "date_added"
	if inTrash {
		timeColumn = "deleted_date_time"
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE document_type_id = $1 AND in_trash = $2 AND `+timeColumn+` < $3`,
		documentTypeID, inTrash, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	var result []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.DocumentTypeID, &d.Label, &d.Description, &d.Language, &d.InTrash, &d.DeletedDateTime, &d.IsStub, &d.DateAdded); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

type PostgresVersionRepository struct {
	db *pgxpool.Pool
}

func NewPostgresVersionRepository(db *pgxpool.Pool) *PostgresVersionRepository {
	return &PostgresVersionRepository{db: db}
}

const versionColumns = `id, document_id, timestamp, comment, content_key, mimetype, encoding, checksum`

func (r *PostgresVersionRepository) CreateWithPages(ctx context.Context, version *models.DocumentVersion, pageCount int) ([]models.DocumentPage, bool, error) {
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin version tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock on the owning document serializes concurrent uploads so
	// "latest version" stays deterministic.
	var isStub bool
	err = tx.QueryRow(ctx, `SELECT is_stub FROM documents WHERE id = $1 FOR UPDATE`, version.DocumentID).Scan(&isStub)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock document: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO document_versions (id, document_id, comment, content_key, mimetype, encoding, checksum)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING timestamp`,
		version.ID, version.DocumentID, version.Comment, version.ContentKey, version.Mimetype, version.Encoding, version.Checksum,
	).Scan(&version.Timestamp)
	if isUniqueViolation(err) {
		return nil, false, ErrDuplicateContent
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert version: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM document_pages WHERE document_version_id = $1`, version.ID); err != nil {
		return nil, false, fmt.Errorf("clear pages: %w", err)
	}

	pages := make([]models.DocumentPage, 0, pageCount)
	for number := 1; number <= pageCount; number++ {
		page := models.DocumentPage{
			ID:                uuid.New(),
			DocumentVersionID: version.ID,
			PageNumber:        number,
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO document_pages (id, document_version_id, page_number) VALUES ($1, $2, $3)`,
			page.ID, page.DocumentVersionID, page.PageNumber,
		); err != nil {
			return nil, false, fmt.Errorf("insert page %d: %w", number, err)
		}
		pages = append(pages, page)
	}

	if isStub {
		if _, err := tx.Exec(ctx, `UPDATE documents SET is_stub = FALSE WHERE id = $1`, version.DocumentID); err != nil {
			return nil, false, fmt.Errorf("clear stub flag: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit version tx: %w", err)
	}
	return pages, isStub, nil
}

func (r *PostgresVersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentVersion, error) {
	row := r.db.QueryRow(ctx, `SELECT `+versionColumns+` FROM document_versions WHERE id = $1`, id)
	return scanVersion(row)
}

func (r *PostgresVersionRepository) GetByContentKey(ctx context.Context, contentKey string) (*models.DocumentVersion, error) {
	row := r.db.QueryRow(ctx, `SELECT `+versionColumns+` FROM document_versions WHERE content_key = $1`, contentKey)
	return scanVersion(row)
}

func (r *PostgresVersionRepository) Latest(ctx context.Context, documentID uuid.UUID) (*models.DocumentVersion, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM document_versions
		 WHERE document_id = $1 ORDER BY timestamp DESC LIMIT 1`,
		documentID,
	)
	return scanVersion(row)
}

func (r *PostgresVersionRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.DocumentVersion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+versionColumns+` FROM document_versions WHERE document_id = $1 ORDER BY timestamp`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()
	return collectVersions(rows)
}

func (r *PostgresVersionRepository) ListNewerThan(ctx context.Context, documentID uuid.UUID, after time.Time) ([]models.DocumentVersion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+versionColumns+` FROM document_versions
		 WHERE document_id = $1 AND timestamp > $2 ORDER BY timestamp`,
		documentID, after,
	)
	if err != nil {
		return nil, fmt.Errorf("list newer versions: %w", err)
	}
	defer rows.Close()
	return collectVersions(rows)
}

func (r *PostgresVersionRepository) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM document_versions WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return count, nil
}

func (r *PostgresVersionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM document_versions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresVersionRepository) Pages(ctx context.Context, versionID uuid.UUID) ([]models.DocumentPage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_version_id, page_number FROM document_pages
		 WHERE document_version_id = $1 ORDER BY page_number`,
		versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []models.DocumentPage
	for rows.Next() {
		var p models.DocumentPage
		if err := rows.Scan(&p.ID, &p.DocumentVersionID, &p.PageNumber); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (r *PostgresVersionRepository) GetPage(ctx context.Context, pageID uuid.UUID) (*models.DocumentPage, error) {
	var p models.DocumentPage
	err := r.db.QueryRow(ctx,
		`SELECT id, document_version_id, page_number FROM document_pages WHERE id = $1`,
		pageID,
	).Scan(&p.ID, &p.DocumentVersionID, &p.PageNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return &p, nil
}

func scanVersion(row pgx.Row) (*models.DocumentVersion, error) {
	var v models.DocumentVersion
	err := row.Scan(&v.ID, &v.DocumentID, &v.Timestamp, &v.Comment, &v.ContentKey, &v.Mimetype, &v.Encoding, &v.Checksum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	return &v, nil
}

func collectVersions(rows pgx.Rows) ([]models.DocumentVersion, error) {
	var result []models.DocumentVersion
	for rows.Next() {
		var v models.DocumentVersion
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Timestamp, &v.Comment, &v.ContentKey, &v.Mimetype, &v.Encoding, &v.Checksum); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type PostgresTransformationRepository struct {
	db *pgxpool.Pool
}

func NewPostgresTransformationRepository(db *pgxpool.Pool) *PostgresTransformationRepository {
	return &PostgresTransformationRepository{db: db}
}

func (r *PostgresTransformationRepository) Create(ctx context.Context, t *models.Transformation) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO transformations (id, owner_type, owner_id, sort_order, name, arguments)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		t.ID, t.OwnerType, t.OwnerID, t.SortOrder, t.Name, t.Arguments,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transformation: %w", err)
	}
	return nil
}

func (r *PostgresTransformationRepository) ListForOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]models.Transformation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_type, owner_id, sort_order, name, arguments, created_at
		 FROM transformations WHERE owner_type = $1 AND owner_id = $2 ORDER BY sort_order`,
		ownerType, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transformations: %w", err)
	}
	defer rows.Close()

	var result []models.Transformation
	for rows.Next() {
		var t models.Transformation
		if err := rows.Scan(&t.ID, &t.OwnerType, &t.OwnerID, &t.SortOrder, &t.Name, &t.Arguments, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transformation: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *PostgresTransformationRepository) DeleteForOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM transformations WHERE owner_type = $1 AND owner_id = $2`,
		ownerType, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete transformations: %w", err)
	}
	return nil
}

func (r *PostgresTransformationRepository) Copy(ctx context.Context, fromType string, fromID uuid.UUID, toType string, toID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO transformations (owner_type, owner_id, sort_order, name, arguments)
		 SELECT $3, $4, sort_order, name, arguments
		 FROM transformations WHERE owner_type = $1 AND owner_id = $2`,
		fromType, fromID, toType, toID,
	)
	if err != nil {
		return fmt.Errorf("copy transformations: %w", err)
	}
	return nil
}
