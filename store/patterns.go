package store

import (
	"context"
	"database/sql"
	"fmt"

	"socanalyzer/core"
)

const patternColumns = `id, name, COALESCE(summary, ''), COALESCE(description, ''),
	status, COALESCE(feedback, ''), COALESCE(tags, ''), COALESCE(user_id, 0),
	created_at, updated_at`

// ListPatterns returns all patterns, most recently updated first.
func (s *Store) ListPatterns(ctx context.Context) ([]core.Pattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+patternColumns+` FROM patterns ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []core.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// GetPatternByName looks a pattern up by its exact name.
func (s *Store) GetPatternByName(ctx context.Context, name string) (core.Pattern, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+patternColumns+` FROM patterns WHERE name = ?`, name)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return core.Pattern{}, ErrNotFound
	}
	return p, err
}

// SavePattern upserts a pattern by name from an explicit analyst action
// (the /save_pattern endpoint). Same last-write-wins semantics as the
// analysis path, but feedback is also written.
func (s *Store) SavePattern(ctx context.Context, p core.Pattern) (int64, error) {
	status := core.NormalizeStatus(p.Status)
	ts := now()

	var id int64
	err := s.withTx(ctx, "save pattern", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM patterns WHERE name = ?`, p.Name).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			res, insErr := tx.ExecContext(ctx, `
				INSERT INTO patterns (name, summary, description, status, feedback, tags, user_id, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.Name, p.Summary, p.Description, status, p.Feedback, p.Tags,
				nullableID(p.UserID), ts, ts)
			if insErr != nil {
				return fmt.Errorf("failed to insert pattern: %w", insErr)
			}
			id, insErr = res.LastInsertId()
			return insErr
		case err != nil:
			return fmt.Errorf("failed to look up pattern: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE patterns SET summary = ?, description = ?, status = ?, feedback = ?, tags = ?, updated_at = ?
			WHERE id = ?`,
			p.Summary, p.Description, status, p.Feedback, p.Tags, ts, id)
		if err != nil {
			return fmt.Errorf("failed to update pattern: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdatePattern overwrites the mutable fields of a pattern by id.
func (s *Store) UpdatePattern(ctx context.Context, id int64, summary, description, status, feedback, tags string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE patterns SET summary = ?, description = ?, status = ?, feedback = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		summary, description, core.NormalizeStatus(status), feedback, tags, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePattern removes a pattern. Analyses referencing it keep their
// denormalized copies; the foreign key is set to NULL by the schema.
func (s *Store) DeletePattern(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patterns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPattern(row scanner) (core.Pattern, error) {
	var p core.Pattern
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.Summary, &p.Description, &p.Status,
		&p.Feedback, &p.Tags, &p.UserID, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return p, err
		}
		return p, fmt.Errorf("failed to scan pattern: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
