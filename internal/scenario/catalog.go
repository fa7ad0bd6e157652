package scenario

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Definition is one named, saved scenario: the hosts/links/actor-mix
// description a run is configured from (spec.md Non-goals keep the kernel
// itself opaque to this content — it is purely a CLI/config convenience).
type Definition struct {
	ID          uuid.UUID
	Name        string
	Description string
	ConfigYAML  string
	CreatedAt   time.Time
}

// Save inserts or replaces the scenario named def.Name.
func (s *Store) Save(ctx context.Context, def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("scenario: name is required")
	}

	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scenarios (id, name, description, config_yaml)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			config_yaml = excluded.config_yaml
	`, def.ID.String(), def.Name, def.Description, def.ConfigYAML)
	if err != nil {
		return fmt.Errorf("scenario: save %q: %w", def.Name, err)
	}

	log.Debugf("scenario: saved %q", def.Name)

	return nil
}

// Get loads the named scenario.
func (s *Store) Get(ctx context.Context, name string) (Definition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, config_yaml, created_at
		FROM scenarios WHERE name = ?
	`, name)

	return scanDefinition(row)
}

// List returns every saved scenario, ordered by name.
func (s *Store) List(ctx context.Context) ([]Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, config_yaml, created_at
		FROM scenarios ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("scenario: list: %w", err)
	}
	defer rows.Close()

	var defs []Definition

	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}

		defs = append(defs, def)
	}

	return defs, rows.Err()
}

// Delete removes the named scenario. It is not an error if it doesn't exist.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scenarios WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("scenario: delete %q: %w", name, err)
	}

	return nil
}

// rowScanner abstracts over *sql.Row and *sql.Rows, both of which expose
// Scan with the same signature.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(r rowScanner) (Definition, error) {
	var (
		def  Definition
		id   string
		when time.Time
	)

	err := r.Scan(&id, &def.Name, &def.Description, &def.ConfigYAML, &when)
	if err != nil {
		if err == sql.ErrNoRows {
			return Definition{}, fmt.Errorf("scenario: not found: %w", err)
		}

		return Definition{}, fmt.Errorf("scenario: scan: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Definition{}, fmt.Errorf("scenario: bad id %q: %w", id, err)
	}

	def.ID = parsed
	def.CreatedAt = when

	return def, nil
}
