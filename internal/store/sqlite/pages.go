package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// pageColumns is the ordered list of columns selected in page queries.
// Must match the scan order in scanPage.
const pageColumns = `id, book_id, title, url, content, extracted_content,
	sort_order, pinned, status, created_at, updated_at`

// scanPage scans a page row. Tags are left nil; the caller attaches them
// via GetTagsForPage or GetTagsForPages when the read needs them.
func scanPage(scanner interface{ Scan(dest ...any) error }) (*domain.Page, error) {
	var page domain.Page

	var (
		bookID    sql.NullString
		sortOrder int64
		pinned    int
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&page.ID,
		&bookID,
		&page.Title,
		&page.URL,
		&page.Content,
		&page.ExtractedContent,
		&sortOrder,
		&pinned,
		&page.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bookID.Valid {
		page.BookID = &bookID.String
	}
	page.Order = domain.FlexInt64(sortOrder)
	page.Pinned = pinned != 0

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	page.CreatedAt = domain.NewFlexTime(created)

	updated, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	page.UpdatedAt = domain.NewFlexTime(updated)

	return &page, nil
}

// UpsertPage writes a page exactly as given and journals the write. The
// Tags field is ignored here; tag links go through ReplacePageTags.
func (s *Store) UpsertPage(ctx context.Context, page *domain.Page) (*domain.ChangeRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (id, book_id, title, url, content, extracted_content,
			sort_order, pinned, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			book_id = excluded.book_id,
			title = excluded.title,
			url = excluded.url,
			content = excluded.content,
			extracted_content = excluded.extracted_content,
			sort_order = excluded.sort_order,
			pinned = excluded.pinned,
			status = excluded.status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		page.ID,
		nullableString(page.BookID),
		page.Title,
		page.URL,
		page.Content,
		page.ExtractedContent,
		page.Order.Int64(),
		boolToInt(page.Pinned),
		page.Status,
		formatTime(page.CreatedAt.Time),
		formatTime(page.UpdatedAt.Time),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert page %s: %w", page.ID, err)
	}

	record, err := recordChangeTx(ctx, tx, domain.EntityTypePage, page.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if err := s.searchIndexer.IndexPage(ctx, page); err != nil {
		s.logger.Warn("index page", "page_id", page.ID, "error", err)
	}

	return record, nil
}

// GetPage retrieves a page by ID, without tags.
// Returns store.ErrNotFound if the page doesn't exist.
func (s *Store) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)

	page, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

// GetPagesByIDs retrieves pages matching the given IDs, without tags. IDs
// with no row are silently skipped, so the result may be shorter than the
// input.
func (s *Store) GetPagesByIDs(ctx context.Context, ids []string) ([]*domain.Page, error) {
	if len(ids) == 0 {
		return []*domain.Page{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM pages WHERE id IN (%s)`, pageColumns, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []*domain.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if pages == nil {
		pages = []*domain.Page{}
	}

	return pages, nil
}

// ListPages returns all pages ordered by sort order, then title, without
// tags.
func (s *Store) ListPages(ctx context.Context) ([]*domain.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages ORDER BY sort_order ASC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []*domain.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if pages == nil {
		pages = []*domain.Page{}
	}

	return pages, nil
}

// DeletePage removes a page and its tag links, then journals a tombstone.
// Deleting a page that doesn't exist still writes the tombstone, so
// retries and crossed deletions from two devices converge.
func (s *Store) DeletePage(ctx context.Context, id string) (*domain.ChangeRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_tags WHERE page_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete page tags for page %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete page %s: %w", id, err)
	}

	record, err := recordDeletionTx(ctx, tx, domain.EntityTypePage, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if err := s.searchIndexer.Delete(ctx, id); err != nil {
		s.logger.Warn("deindex page", "page_id", id, "error", err)
	}

	return record, nil
}

// CountPages returns the number of pages.
func (s *Store) CountPages(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}
