package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, title, emoji, sort_order, parent_id, created_at, updated_at`

// scanBook scans a book row.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var book domain.Book

	var (
		emoji     sql.NullString
		sortOrder int64
		parentID  sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&book.ID,
		&book.Title,
		&emoji,
		&sortOrder,
		&parentID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	book.Emoji = emoji.String
	book.Order = domain.FlexInt64(sortOrder)
	if parentID.Valid {
		book.ParentID = &parentID.String
	}

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	book.CreatedAt = domain.NewFlexTime(created)

	updated, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	book.UpdatedAt = domain.NewFlexTime(updated)

	return &book, nil
}

// UpsertBook writes a book exactly as given and journals the write. The
// caller decides whether the write should happen at all; nothing here
// compares timestamps.
func (s *Store) UpsertBook(ctx context.Context, book *domain.Book) (*domain.ChangeRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO books (id, title, emoji, sort_order, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			emoji = excluded.emoji,
			sort_order = excluded.sort_order,
			parent_id = excluded.parent_id,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		book.ID,
		book.Title,
		nullString(book.Emoji),
		book.Order.Int64(),
		nullableString(book.ParentID),
		formatTime(book.CreatedAt.Time),
		formatTime(book.UpdatedAt.Time),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert book %s: %w", book.ID, err)
	}

	record, err := recordChangeTx(ctx, tx, domain.EntityTypeBook, book.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if err := s.searchIndexer.IndexBook(ctx, book); err != nil {
		s.logger.Warn("index book", "book_id", book.ID, "error", err)
	}

	return record, nil
}

// GetBook retrieves a book by ID.
// Returns store.ErrNotFound if the book doesn't exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	book, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// GetBooksByIDs retrieves books matching the given IDs. IDs with no row are
// silently skipped, so the result may be shorter than the input.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return []*domain.Book{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM books WHERE id IN (%s)`, bookColumns, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if books == nil {
		books = []*domain.Book{}
	}

	return books, nil
}

// ListBooks returns all books ordered by sort order, then title.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY sort_order ASC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if books == nil {
		books = []*domain.Book{}
	}

	return books, nil
}

// DeleteBook removes a book, cascades to its pages and their tag links, and
// journals a tombstone for the book and each cascaded page. Deleting a book
// that doesn't exist still writes the book tombstone, so retries and
// crossed deletions from two devices converge.
func (s *Store) DeleteBook(ctx context.Context, id string) (*domain.ChangeRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM pages WHERE book_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query pages for book %s: %w", id, err)
	}

	var pageIDs []string
	for rows.Next() {
		var pageID string
		if err := rows.Scan(&pageID); err != nil {
			rows.Close()
			return nil, err
		}
		pageIDs = append(pageIDs, pageID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(pageIDs) > 0 {
		placeholders := make([]string, len(pageIDs))
		args := make([]any, len(pageIDs))
		for i, pageID := range pageIDs {
			placeholders[i] = "?"
			args[i] = pageID
		}

		_, err = tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM page_tags WHERE page_id IN (%s)`, strings.Join(placeholders, ",")),
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("delete page tags for book %s: %w", id, err)
		}

		_, err = tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM pages WHERE id IN (%s)`, strings.Join(placeholders, ",")),
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("delete pages for book %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete book %s: %w", id, err)
	}

	record, err := recordDeletionTx(ctx, tx, domain.EntityTypeBook, id)
	if err != nil {
		return nil, err
	}

	for _, pageID := range pageIDs {
		if _, err := recordDeletionTx(ctx, tx, domain.EntityTypePage, pageID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if err := s.searchIndexer.Delete(ctx, id); err != nil {
		s.logger.Warn("deindex book", "book_id", id, "error", err)
	}
	for _, pageID := range pageIDs {
		if err := s.searchIndexer.Delete(ctx, pageID); err != nil {
			s.logger.Warn("deindex page", "page_id", pageID, "error", err)
		}
	}

	return record, nil
}

// CountBooks returns the number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}
