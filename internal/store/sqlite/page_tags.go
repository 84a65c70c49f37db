package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
)

// ReplacePageTags replaces all tag links for a page in a single
// transaction. It deletes existing page_tags rows and inserts the new set.
// The page's own ledger row is not touched; the caller journals the page
// write that carried the new tag list.
func (s *Store) ReplacePageTags(ctx context.Context, pageID string, tagIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Delete existing links for this page.
	if _, err := tx.ExecContext(ctx, `DELETE FROM page_tags WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("delete page_tags: %w", err)
	}

	// Insert new tag links.
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO page_tags (page_id, tag_id)
			VALUES (?, ?)`,
			pageID,
			tagID,
		)
		if err != nil {
			return fmt.Errorf("insert page_tag: %w", err)
		}
	}

	return tx.Commit()
}

// GetTagsForPage returns the tags linked to a page, ordered by name.
func (s *Store) GetTagsForPage(ctx context.Context, pageID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.color
		FROM tags t
		JOIN page_tags pt ON pt.tag_id = t.id
		WHERE pt.page_id = ?
		ORDER BY t.name ASC`, pageID)
	if err != nil {
		return nil, fmt.Errorf("query page tags: %w", err)
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

// GetTagsForPages returns the tags linked to each of the given pages in one
// query, keyed by page id. Pages with no tags have no entry in the map.
func (s *Store) GetTagsForPages(ctx context.Context, pageIDs []string) (map[string][]*domain.Tag, error) {
	result := make(map[string][]*domain.Tag)
	if len(pageIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(pageIDs))
	args := make([]any, len(pageIDs))
	for i, pageID := range pageIDs {
		placeholders[i] = "?"
		args[i] = pageID
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`
			SELECT pt.page_id, t.id, t.name, t.color
			FROM tags t
			JOIN page_tags pt ON pt.tag_id = t.id
			WHERE pt.page_id IN (%s)
			ORDER BY t.name ASC`, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query page tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pageID string
		var t domain.Tag
		var color sql.NullString
		if err := rows.Scan(&pageID, &t.ID, &t.Name, &color); err != nil {
			return nil, err
		}
		if color.Valid {
			t.Color = &color.String
		}
		result[pageID] = append(result[pageID], &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
