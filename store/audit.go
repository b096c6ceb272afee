package store

import (
	"context"
	"fmt"

	"socanalyzer/core"
)

// AppendAudit writes one append-only audit entry. Entries are never
// updated or deleted individually.
func (s *Store) AppendAudit(ctx context.Context, entry core.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO logs (user_id, action, details, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		nullableID(entry.UserID), entry.Action, entry.Details,
		entry.IPAddress, entry.UserAgent, now())
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the most recent audit entries, newest first. A limit
// of zero or less means no limit.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]core.AuditEntry, error) {
	query := `
		SELECT id, COALESCE(user_id, 0), action, COALESCE(details, ''),
			COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM logs ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []core.AuditEntry
	for rows.Next() {
		var e core.AuditEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Details,
			&e.IPAddress, &e.UserAgent, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearAudit bulk-deletes the audit log.
func (s *Store) ClearAudit(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM logs`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear audit log: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
