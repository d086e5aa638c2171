package rules

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// PostgresExpressionStore implements ExpressionStore backed by PostgreSQL
type PostgresExpressionStore struct {
	db *sql.DB
}

// NewPostgresExpressionStore creates a new PostgreSQL-backed ExpressionStore
func NewPostgresExpressionStore(db *sql.DB) *PostgresExpressionStore {
	return &PostgresExpressionStore{db: db}
}

// Add inserts a new definition
func (s *PostgresExpressionStore) Add(def *ExpressionDefinition) error {
	now := time.Now()
	def.CreatedAt = now
	def.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO expression_rules (id, catalog_version, name, scope, expression, parameters, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, def.ID, def.CatalogVersion, def.Name, string(def.Scope), def.Expression,
		joinParameterNames(def.Parameters), def.Active, def.CreatedAt, def.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrExpressionExists, pqErr.Detail)
	}
	if err != nil {
		return fmt.Errorf("failed to insert expression rule: %w", err)
	}
	return nil
}

// Get retrieves a definition by ID
func (s *PostgresExpressionStore) Get(id string) (*ExpressionDefinition, error) {
	row := s.db.QueryRow(`
		SELECT id, catalog_version, name, scope, expression, parameters, active, created_at, updated_at
		FROM expression_rules
		WHERE id = $1
	`, id)

	def, err := scanDefinition(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrExpressionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expression rule: %w", err)
	}
	return def, nil
}

// ListActive returns the active definitions of a catalog version
func (s *PostgresExpressionStore) ListActive(catalogVersion string) ([]*ExpressionDefinition, error) {
	rows, err := s.db.Query(`
		SELECT id, catalog_version, name, scope, expression, parameters, active, created_at, updated_at
		FROM expression_rules
		WHERE catalog_version = $1 AND active = true
		ORDER BY created_at ASC, id ASC
	`, catalogVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to list active expression rules: %w", err)
	}
	defer rows.Close()

	var defs []*ExpressionDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expression rule: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expression rules: %w", err)
	}
	return defs, nil
}

// Update modifies an existing definition
func (s *PostgresExpressionStore) Update(def *ExpressionDefinition) error {
	def.UpdatedAt = time.Now()

	result, err := s.db.Exec(`
		UPDATE expression_rules
		SET catalog_version = $1, name = $2, scope = $3, expression = $4, parameters = $5, active = $6, updated_at = $7
		WHERE id = $8
	`, def.CatalogVersion, def.Name, string(def.Scope), def.Expression,
		joinParameterNames(def.Parameters), def.Active, def.UpdatedAt, def.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrExpressionExists, pqErr.Detail)
	}
	if err != nil {
		return fmt.Errorf("failed to update expression rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrExpressionNotFound, def.ID)
	}
	return nil
}

// Delete removes a definition
func (s *PostgresExpressionStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM expression_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expression rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrExpressionNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*ExpressionDefinition, error) {
	var (
		def    ExpressionDefinition
		scope  string
		params string
	)
	if err := row.Scan(&def.ID, &def.CatalogVersion, &def.Name, &scope, &def.Expression,
		&params, &def.Active, &def.CreatedAt, &def.UpdatedAt); err != nil {
		return nil, err
	}
	def.Scope = Scope(scope)
	def.Parameters = splitParameterNames(params)
	return &def, nil
}

func joinParameterNames(names []string) string {
	return strings.Join(names, ",")
}

func splitParameterNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
