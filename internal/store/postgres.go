package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dynaform/internal/core"
)

// postgresStore implements Store for PostgreSQL
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new PostgreSQL store. It creates a connection pool,
// verifies the connection, and creates the schema if needed.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("PostgreSQL URL is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	} else {
		poolCfg.MaxConns = 10 // default
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if err := createPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &postgresStore{pool: pool}, nil
}

func createPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS form_schemas (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			schema_definition JSONB NOT NULL,
			data JSONB NOT NULL DEFAULT '{}',
			user_details JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create form_schemas table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS submissions (
			id BIGSERIAL PRIMARY KEY,
			form_schema_id BIGINT NOT NULL REFERENCES form_schemas(id) ON DELETE CASCADE,
			form_name TEXT NOT NULL DEFAULT '',
			data JSONB NOT NULL,
			user_email TEXT NOT NULL DEFAULT '',
			validation_status TEXT NOT NULL DEFAULT 'valid',
			is_duplicate BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
		"CREATE INDEX IF NOT EXISTS idx_submissions_data_gin ON submissions USING GIN (data)",
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}
	return nil
}

func (s *postgresStore) CreateForm(ctx context.Context, f *core.Form) (*core.Form, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO form_schemas (name, description, schema_definition, data, user_details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, f.Name, f.Description, jsonOrEmpty(f.SchemaDefinition), jsonOrEmpty(f.Data), jsonOrEmpty(f.UserDetails)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert form: %w", err)
	}
	return s.GetForm(ctx, id)
}

func (s *postgresStore) GetForm(ctx context.Context, id int64) (*core.Form, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, description, schema_definition, data, user_details, created_at
		FROM form_schemas WHERE id = $1
	`, id)
	return scanFormPG(row)
}

func (s *postgresStore) UpdateForm(ctx context.Context, f *core.Form) (*core.Form, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE form_schemas
		SET name = $1, description = $2, schema_definition = $3, data = $4, user_details = $5
		WHERE id = $6
	`, f.Name, f.Description, jsonOrEmpty(f.SchemaDefinition), jsonOrEmpty(f.Data), jsonOrEmpty(f.UserDetails), f.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetForm(ctx, f.ID)
}

func (s *postgresStore) DeleteForm(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM form_schemas WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresStore) ListForms(ctx context.Context, p FormListParams) ([]*core.Form, int, error) {
	where := ""
	args := []any{}
	if p.Search != "" {
		where = "WHERE name ILIKE $1"
		args = append(args, p.Search+"%")
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM form_schemas "+where, args...).Scan(&total); err != nil {
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
		LIMIT $%d OFFSET $%d
	`, where, formSortColumn(p.Sort), sortDirection(p.Order), len(args)+1, len(args)+2)
	args = append(args, limit, p.Skip)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list forms: %w", err)
	}
	defer rows.Close()

	var forms []*core.Form
	for rows.Next() {
		f, err := scanFormPG(rows)
		if err != nil {
			return nil, 0, err
		}
		forms = append(forms, f)
	}
	return forms, total, rows.Err()
}

func (s *postgresStore) CountForms(ctx context.Context) (int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM form_schemas").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count forms: %w", err)
	}
	return total, nil
}

func (s *postgresStore) FormNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		"SELECT 1 FROM form_schemas WHERE name = $1 AND id <> $2 LIMIT 1",
		name, excludeID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check form name: %w", err)
	}
	return true, nil
}

func (s *postgresStore) FormEmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `
		SELECT 1 FROM form_schemas
		WHERE lower(user_details->>'email') = lower($1) AND id <> $2
		LIMIT 1
	`, email, excludeID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check form email: %w", err)
	}
	return true, nil
}

func (s *postgresStore) CreateSubmission(ctx context.Context, sub *core.Submission) (*core.Submission, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO submissions (form_schema_id, form_name, data, user_email, validation_status, is_duplicate)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, sub.FormSchemaID, sub.FormName, jsonOrEmpty(sub.Data), sub.UserEmail, sub.ValidationStatus, sub.IsDuplicate).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert submission: %w", err)
	}
	return s.GetSubmission(ctx, id)
}

func (s *postgresStore) GetSubmission(ctx context.Context, id int64) (*core.Submission, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, form_schema_id, form_name, data, user_email, validation_status, is_duplicate, created_at
		FROM submissions WHERE id = $1
	`, id)
	return scanSubmissionPG(row)
}

func (s *postgresStore) DeleteSubmission(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM submissions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresStore) ListSubmissions(ctx context.Context, p SubmissionListParams) ([]*core.Submission, int, error) {
	where := "WHERE form_schema_id = $1"
	args := []any{p.FormID}
	if p.Email != "" {
		where += fmt.Sprintf(" AND user_email ILIKE $%d", len(args)+1)
		args = append(args, "%"+p.Email+"%")
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM submissions "+where, args...).Scan(&total); err != nil {
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
		LIMIT $%d OFFSET $%d
	`, where, submissionSortColumn(p.Sort), sortDirection(p.Order), len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*core.Submission
	for rows.Next() {
		sub, err := scanSubmissionPG(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, sub)
	}
	return subs, total, rows.Err()
}

func (s *postgresStore) SubmissionEmailExists(ctx context.Context, formID int64, email string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `
		SELECT 1 FROM submissions
		WHERE form_schema_id = $1 AND data->>'email' = $2
		LIMIT 1
	`, formID, email).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check submission email: %w", err)
	}
	return true, nil
}

func (s *postgresStore) SubmissionStats(ctx context.Context, formID int64) (int, int, error) {
	var total, duplicates int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_duplicate)
		FROM submissions WHERE form_schema_id = $1
	`, formID).Scan(&total, &duplicates)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read submission stats: %w", err)
	}
	return total, duplicates, nil
}

func (s *postgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func scanFormPG(row pgx.Row) (*core.Form, error) {
	var f core.Form
	err := row.Scan(&f.ID, &f.Name, &f.Description, (*[]byte)(&f.SchemaDefinition), (*[]byte)(&f.Data), (*[]byte)(&f.UserDetails), &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan form: %w", err)
	}
	return &f, nil
}

func scanSubmissionPG(row pgx.Row) (*core.Submission, error) {
	var s core.Submission
	err := row.Scan(&s.ID, &s.FormSchemaID, &s.FormName, (*[]byte)(&s.Data), &s.UserEmail, &s.ValidationStatus, &s.IsDuplicate, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	return &s, nil
}
