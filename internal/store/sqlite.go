package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"dynaform/internal/core"
)

// sqliteStore implements Store for SQLite
type sqliteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite store. It enables WAL mode for better
// concurrent read/write performance and creates the schema if needed.
func NewSQLite(cfg SQLiteConfig) (Store, error) {
	if cfg.Path == "" {
		cfg.Path = "data/dynaform.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS form_schemas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			schema_definition JSON NOT NULL,
			data JSON NOT NULL DEFAULT '{}',
			user_details JSON NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create form_schemas table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			form_schema_id INTEGER NOT NULL REFERENCES form_schemas(id) ON DELETE CASCADE,
			form_name TEXT NOT NULL DEFAULT '',
			data JSON NOT NULL,
			user_email TEXT NOT NULL DEFAULT '',
			validation_status TEXT NOT NULL DEFAULT 'valid',
			is_duplicate INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create submissions table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_forms_name ON form_schemas(name)",
		"CREATE INDEX IF NOT EXISTS idx_forms_created ON form_schemas(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_submissions_form ON submissions(form_schema_id)",
		"CREATE INDEX IF NOT EXISTS idx_submissions_email ON submissions(user_email)",
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}
	return nil
}

func (s *sqliteStore) CreateForm(ctx context.Context, f *core.Form) (*core.Form, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO form_schemas (name, description, schema_definition, data, user_details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.Name, f.Description, jsonOrEmpty(f.SchemaDefinition), jsonOrEmpty(f.Data), jsonOrEmpty(f.UserDetails), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to insert form: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted form id: %w", err)
	}
	return s.GetForm(ctx, id)
}

func (s *sqliteStore) GetForm(ctx context.Context, id int64) (*core.Form, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, schema_definition, data, user_details, created_at
		FROM form_schemas WHERE id = ?
	`, id)
	return scanForm(row)
}

func (s *sqliteStore) UpdateForm(ctx context.Context, f *core.Form) (*core.Form, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE form_schemas
		SET name = ?, description = ?, schema_definition = ?, data = ?, user_details = ?
		WHERE id = ?
	`, f.Name, f.Description, jsonOrEmpty(f.SchemaDefinition), jsonOrEmpty(f.Data), jsonOrEmpty(f.UserDetails), f.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update form: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetForm(ctx, f.ID)
}

func (s *sqliteStore) DeleteForm(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM form_schemas WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) ListForms(ctx context.Context, p FormListParams) ([]*core.Form, int, error) {
	where := ""
	args := []any{}
	if p.Search != "" {
		// LIKE is case-insensitive for ASCII in SQLite, matching the
		// prefix search semantics of the Postgres backend's ILIKE.
		where = "WHERE name LIKE ?"
		args = append(args, p.Search+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM form_schemas "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count forms: %w", err)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT id, name, description, schema_definition, data, user_details, created_at
		FROM form_schemas %s
		ORDER BY %s %s
		LIMIT ? OFFSET ?
	`, where, formSortColumn(p.Sort), sortDirection(p.Order))
	args = append(args, limit, p.Skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list forms: %w", err)
	}
	defer rows.Close()

	var forms []*core.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, 0, err
		}
		forms = append(forms, f)
	}
	return forms, total, rows.Err()
}

func (s *sqliteStore) CountForms(ctx context.Context) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM form_schemas").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count forms: %w", err)
	}
	return total, nil
}

func (s *sqliteStore) FormNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM form_schemas WHERE name = ? AND id <> ? LIMIT 1",
		name, excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check form name: %w", err)
	}
	return true, nil
}

func (s *sqliteStore) FormEmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM form_schemas
		WHERE lower(json_extract(user_details, '$.email')) = lower(?) AND id <> ?
		LIMIT 1
	`, email, excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check form email: %w", err)
	}
	return true, nil
}

func (s *sqliteStore) CreateSubmission(ctx context.Context, sub *core.Submission) (*core.Submission, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (form_schema_id, form_name, data, user_email, validation_status, is_duplicate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sub.FormSchemaID, sub.FormName, jsonOrEmpty(sub.Data), sub.UserEmail, sub.ValidationStatus, sub.IsDuplicate, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to insert submission: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted submission id: %w", err)
	}
	return s.GetSubmission(ctx, id)
}

func (s *sqliteStore) GetSubmission(ctx context.Context, id int64) (*core.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, form_schema_id, form_name, data, user_email, validation_status, is_duplicate, created_at
		FROM submissions WHERE id = ?
	`, id)
	return scanSubmission(row)
}

func (s *sqliteStore) DeleteSubmission(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM submissions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) ListSubmissions(ctx context.Context, p SubmissionListParams) ([]*core.Submission, int, error) {
	where := "WHERE form_schema_id = ?"
	args := []any{p.FormID}
	if p.Email != "" {
		where += " AND user_email LIKE ?"
		args = append(args, "%"+p.Email+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT id, form_schema_id, form_name, data, user_email, validation_status, is_duplicate, created_at
		FROM submissions %s
		ORDER BY %s %s
		LIMIT ? OFFSET ?
	`, where, submissionSortColumn(p.Sort), sortDirection(p.Order))
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*core.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, sub)
	}
	return subs, total, rows.Err()
}

func (s *sqliteStore) SubmissionEmailExists(ctx context.Context, formID int64, email string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM submissions
		WHERE form_schema_id = ? AND json_extract(data, '$.email') = ?
		LIMIT 1
	`, formID, email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check submission email: %w", err)
	}
	return true, nil
}

func (s *sqliteStore) SubmissionStats(ctx context.Context, formID int64) (int, int, error) {
	var total, duplicates int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_duplicate), 0)
		FROM submissions WHERE form_schema_id = ?
	`, formID).Scan(&total, &duplicates)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read submission stats: %w", err)
	}
	return total, duplicates, nil
}

func (s *sqliteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanForm(row scanner) (*core.Form, error) {
	var f core.Form
	var createdAt string
	err := row.Scan(&f.ID, &f.Name, &f.Description, (*[]byte)(&f.SchemaDefinition), (*[]byte)(&f.Data), (*[]byte)(&f.UserDetails), &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan form: %w", err)
	}
	f.CreatedAt = parseSQLTimestamp(createdAt)
	return &f, nil
}

func scanSubmission(row scanner) (*core.Submission, error) {
	var s core.Submission
	var createdAt string
	err := row.Scan(&s.ID, &s.FormSchemaID, &s.FormName, (*[]byte)(&s.Data), &s.UserEmail, &s.ValidationStatus, &s.IsDuplicate, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	s.CreatedAt = parseSQLTimestamp(createdAt)
	return &s, nil
}

func parseSQLTimestamp(ts string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05.999999999-07:00", ts); err == nil {
		return t
	}
	slog.Warn("failed to parse stored timestamp", "raw_timestamp", ts)
	return time.Time{}
}

// jsonOrEmpty normalizes absent JSON documents to the empty object so the
// JSON columns never hold NULL or invalid text.
func jsonOrEmpty(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}
