package store

import (
	"context"
	"database/sql"
	"fmt"

	"socanalyzer/core"
	"socanalyzer/internal/logger"
)

// StoreRequest carries everything needed to persist one analysis run.
type StoreRequest struct {
	Payload       string
	Report        string // full oracle (or fallback) narrative
	PatternName   string
	Summary       string
	Facts         string
	Technical     string
	Result        string
	Justification string
	Status        string
	Tags          string
	UserID        int64

	// Audit metadata for the log entry written alongside the store.
	ClientIP  string
	UserAgent string
}

// StoreAnalysis upserts the pattern named in the request and appends one
// immutable analysis row linked to it.
//
// Pattern semantics: created on first encounter of the name; on every
// subsequent encounter the descriptive fields (summary, description,
// status, tags) are overwritten with the latest values. Last write wins;
// no history is kept on the pattern itself. The analysis row carries
// denormalized copies so history stays faithful after pattern edits.
//
// A status outside the canonical vocabulary is stored as the undetermined
// sentinel rather than rejected. Any persistence error rolls the
// transaction back and is returned after being audit-logged; exactly one
// audit entry is written per call, tagged with the outcome.
func (s *Store) StoreAnalysis(ctx context.Context, req StoreRequest) (analysisID, patternID int64, err error) {
	status := core.NormalizeStatus(req.Status)
	ts := now()

	err = s.withTx(ctx, "store analysis", func(tx *sql.Tx) error {
		var txErr error
		patternID, txErr = upsertPattern(ctx, tx, req, status, ts)
		if txErr != nil {
			return txErr
		}

		res, txErr := tx.ExecContext(ctx, `
			INSERT INTO analyses (payload, pattern_id, pattern_name, summary, facts,
				technical, result, justification, report, status, tags, user_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			req.Payload, patternID, req.PatternName, req.Summary, req.Facts,
			req.Technical, req.Result, req.Justification, req.Report, status,
			req.Tags, nullableID(req.UserID), ts)
		if txErr != nil {
			return fmt.Errorf("failed to insert analysis: %w", txErr)
		}
		analysisID, txErr = res.LastInsertId()
		if txErr != nil {
			return fmt.Errorf("failed to read analysis id: %w", txErr)
		}
		return nil
	})

	// One audit entry per store call, success or failure. The entry is
	// written outside the transaction so it survives a rollback.
	action := "store_analysis"
	details := fmt.Sprintf("pattern=%q status=%q", req.PatternName, status)
	if err != nil {
		action = "store_analysis_failed"
		details = fmt.Sprintf("pattern=%q error=%v", req.PatternName, err)
	}
	if auditErr := s.AppendAudit(ctx, core.AuditEntry{
		UserID:    req.UserID,
		Action:    action,
		Details:   details,
		IPAddress: req.ClientIP,
		UserAgent: req.UserAgent,
	}); auditErr != nil {
		logger.Error("failed to write audit entry for %s: %v", action, auditErr)
	}

	if err != nil {
		return 0, 0, err
	}
	return analysisID, patternID, nil
}

// upsertPattern finds the pattern by exact name, creating it when absent
// (the insert id is obtained before use as a foreign key) and overwriting
// its descriptive fields when present.
func upsertPattern(ctx context.Context, tx *sql.Tx, req StoreRequest, status, ts string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM patterns WHERE name = ?`, req.PatternName).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, insErr := tx.ExecContext(ctx, `
			INSERT INTO patterns (name, summary, description, status, tags, user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			req.PatternName, req.Summary, req.Technical, status, req.Tags,
			nullableID(req.UserID), ts, ts)
		if insErr != nil {
			return 0, fmt.Errorf("failed to insert pattern: %w", insErr)
		}
		id, insErr = res.LastInsertId()
		if insErr != nil {
			return 0, fmt.Errorf("failed to read pattern id: %w", insErr)
		}
		return id, nil
	case err != nil:
		return 0, fmt.Errorf("failed to look up pattern: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE patterns SET summary = ?, description = ?, status = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		req.Summary, req.Technical, status, req.Tags, ts, id)
	if err != nil {
		return 0, fmt.Errorf("failed to update pattern: %w", err)
	}
	return id, nil
}

// ListAnalyses returns the most recent analyses, newest first. A limit of
// zero or less means no limit.
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]core.Analysis, error) {
	query := `
		SELECT id, payload, COALESCE(pattern_id, 0), COALESCE(pattern_name, ''),
			COALESCE(summary, ''), COALESCE(facts, ''), COALESCE(technical, ''),
			COALESCE(result, ''), COALESCE(justification, ''), COALESCE(report, ''),
			status, COALESCE(tags, ''), COALESCE(user_id, 0), created_at
		FROM analyses ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []core.Analysis
	for rows.Next() {
		var a core.Analysis
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Payload, &a.PatternID, &a.PatternName,
			&a.Summary, &a.Facts, &a.Technical, &a.Result, &a.Justification,
			&a.Report, &a.Status, &a.Tags, &a.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// ClearHistory bulk-deletes all analyses. Patterns and their judgments are
// kept.
func (s *Store) ClearHistory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// nullableID converts a zero id to NULL so foreign keys stay clean for
// anonymous requests.
func nullableID(id int64) interface{} {
	if id <= 0 {
		return nil
	}
	return id
}
