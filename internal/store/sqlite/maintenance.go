package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// GetStats summarizes ledger and table sizes.
func (s *Store) GetStats(ctx context.Context) (*store.Stats, error) {
	var stats store.Stats

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(CASE WHEN deleted = 1 THEN 1 END) FROM change_records`).
		Scan(&stats.TotalChanges, &stats.Tombstones)
	if err != nil {
		return nil, fmt.Errorf("count changes: %w", err)
	}

	var oldest, newest sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT MIN(updated_at), MAX(updated_at) FROM change_records`).
		Scan(&oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("change range: %w", err)
	}
	if oldest.Valid {
		t, err := parseTime(oldest.String)
		if err != nil {
			return nil, err
		}
		stats.OldestChange = &t
	}
	if newest.Valid {
		t, err := parseTime(newest.String)
		if err != nil {
			return nil, err
		}
		stats.NewestChange = &t
	}

	if stats.Books, err = s.CountBooks(ctx); err != nil {
		return nil, err
	}
	if stats.Pages, err = s.CountPages(ctx); err != nil {
		return nil, err
	}
	if stats.Tags, err = s.CountTags(ctx); err != nil {
		return nil, err
	}

	return &stats, nil
}

// ClearAllData wipes every entity table and the ledger in one transaction,
// then clears the search index. The instance row survives: the server keeps
// its identity across a factory reset.
func (s *Store) ClearAllData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"page_tags", "pages", "books", "tags", "change_records"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := s.searchIndexer.Clear(ctx); err != nil {
		s.logger.Warn("clear search index", "error", err)
	}

	return nil
}
