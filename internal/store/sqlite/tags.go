package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/pagemarkapp/pagemark-server/internal/id"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, name, color`

// scanTag scans a tag row.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var color sql.NullString

	err := scanner.Scan(
		&t.ID,
		&t.Name,
		&color,
	)
	if err != nil {
		return nil, err
	}

	if color.Valid {
		t.Color = &color.String
	}

	return &t, nil
}

// UpsertTag writes a tag exactly as given and journals the write.
// Returns store.ErrAlreadyExists when the name belongs to a tag with a
// different id.
func (s *Store) UpsertTag(ctx context.Context, t *domain.Tag) (*domain.ChangeRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tags (id, name, color)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color`,
		t.ID,
		t.Name,
		nullableString(t.Color),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("upsert tag %s: %w", t.ID, err)
	}

	record, err := recordChangeTx(ctx, tx, domain.EntityTypeTag, t.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return record, nil
}

// GetTag retrieves a tag by ID.
// Returns store.ErrNotFound if the tag doesn't exist.
func (s *Store) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagsByIDs retrieves tags matching the given IDs. IDs with no row are
// silently skipped, so the result may be shorter than the input.
func (s *Store) GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error) {
	if len(ids) == 0 {
		return []*domain.Tag{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, tagID := range ids {
		placeholders[i] = "?"
		args[i] = tagID
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM tags WHERE id IN (%s)`, tagColumns, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []*domain.Tag{}
	}

	return tags, nil
}

// GetTagByName retrieves a tag by its exact name. Names are matched
// byte for byte, never case-folded or trimmed.
// Returns store.ErrNotFound if the tag doesn't exist.
func (s *Store) GetTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// createTag inserts a new tag and journals it in one transaction.
// Returns store.ErrAlreadyExists on duplicate name.
func (s *Store) createTag(ctx context.Context, t *domain.Tag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tags (id, name, color)
		VALUES (?, ?, ?)`,
		t.ID,
		t.Name,
		nullableString(t.Color),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert tag %s: %w", t.ID, err)
	}

	if _, err := recordChangeTx(ctx, tx, domain.EntityTypeTag, t.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// FindOrCreateTagByName finds an existing tag by exact name or creates a
// new one with a server-minted id. Only the create path journals a change;
// attaching an existing tag to a page is not a tag mutation.
// Returns (tag, created, error) where created is true if a new tag was made.
func (s *Store) FindOrCreateTagByName(ctx context.Context, name string) (*domain.Tag, bool, error) {
	// Try to find existing tag first.
	existing, err := s.GetTagByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if err != store.ErrNotFound {
		return nil, false, err
	}

	// Tag doesn't exist, create it.
	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, fmt.Errorf("generate tag id: %w", err)
	}

	t := &domain.Tag{
		ID:   tagID,
		Name: name,
	}

	if err := s.createTag(ctx, t); err != nil {
		if err == store.ErrAlreadyExists {
			// Race condition: another goroutine created it.
			existing, err := s.GetTagByName(ctx, name)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return t, true, nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if tags == nil {
		tags = []*domain.Tag{}
	}

	return tags, nil
}

// DeleteTag removes a tag and its page links, then journals a tombstone.
// Pages that lose the tag keep their own ledger rows untouched; clients
// drop the tag everywhere when the tombstone reaches them. Deleting a tag
// that doesn't exist still writes the tombstone.
func (s *Store) DeleteTag(ctx context.Context, id string) (*domain.ChangeRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_tags WHERE tag_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete page tags for tag %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete tag %s: %w", id, err)
	}

	record, err := recordDeletionTx(ctx, tx, domain.EntityTypeTag, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return record, nil
}

// CountTags returns the number of tags.
func (s *Store) CountTags(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return count, nil
}
