package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// changeColumns is the ordered list of columns selected in ledger queries.
// Must match the scan order in scanChange.
const changeColumns = `entity_id, entity_type, version, updated_at, deleted`

// scanChange scans a ledger row.
func scanChange(scanner interface{ Scan(dest ...any) error }) (*domain.ChangeRecord, error) {
	var c domain.ChangeRecord

	var (
		entityType string
		version    int64
		updatedAt  string
		deleted    int
	)

	err := scanner.Scan(
		&c.EntityID,
		&entityType,
		&version,
		&updatedAt,
		&deleted,
	)
	if err != nil {
		return nil, err
	}

	c.EntityType = domain.EntityType(entityType)
	c.Version = domain.FlexInt64(version)
	c.Deleted = deleted != 0

	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt = domain.NewFlexTime(t)

	return &c, nil
}

// recordChangeTx upserts the ledger row for an entity inside tx and returns
// the resulting record. A first mutation creates version 1; any later one
// bumps version by exactly one and refreshes updated_at with the current
// time. The deleted flag is left untouched; only recordDeletionTx writes it.
func recordChangeTx(ctx context.Context, tx *sql.Tx, entityType domain.EntityType, entityID string) (*domain.ChangeRecord, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO change_records (entity_id, entity_type, version, updated_at, deleted)
		VALUES (?, ?, 1, ?, 0)
		ON CONFLICT(entity_id) DO UPDATE SET
			version = version + 1,
			entity_type = excluded.entity_type,
			updated_at = excluded.updated_at`,
		entityID, string(entityType), formatTime(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("record change for %s: %w", entityID, err)
	}

	return getChangeTx(ctx, tx, entityID)
}

// recordDeletionTx is recordChangeTx with the deleted flag forced on.
func recordDeletionTx(ctx context.Context, tx *sql.Tx, entityType domain.EntityType, entityID string) (*domain.ChangeRecord, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO change_records (entity_id, entity_type, version, updated_at, deleted)
		VALUES (?, ?, 1, ?, 1)
		ON CONFLICT(entity_id) DO UPDATE SET
			version = version + 1,
			entity_type = excluded.entity_type,
			updated_at = excluded.updated_at,
			deleted = 1`,
		entityID, string(entityType), formatTime(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("record deletion for %s: %w", entityID, err)
	}

	return getChangeTx(ctx, tx, entityID)
}

// getChangeTx reads a ledger row inside tx.
func getChangeTx(ctx context.Context, tx *sql.Tx, entityID string) (*domain.ChangeRecord, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+changeColumns+` FROM change_records WHERE entity_id = ?`, entityID)

	record, err := scanChange(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RecordChange journals a mutation for an entity. Entity upserts journal
// themselves in their own transaction; this is for ledger writes that must
// move on their own.
func (s *Store) RecordChange(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.ChangeRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	record, err := recordChangeTx(ctx, tx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return record, nil
}

// RecordDeletion journals a tombstone for an entity without touching entity
// tables. Entity deletes journal themselves; see RecordChange.
func (s *Store) RecordDeletion(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.ChangeRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	record, err := recordDeletionTx(ctx, tx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return record, nil
}

// GetChange retrieves the ledger row for an entity.
// Returns store.ErrNotFound if the entity has never been recorded.
func (s *Store) GetChange(ctx context.Context, entityID string) (*domain.ChangeRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+changeColumns+` FROM change_records WHERE entity_id = ?`, entityID)

	record, err := scanChange(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetChangesSince returns every ledger row with updated_at strictly after
// since, oldest first (entity_id breaks ties for a stable order). A nil
// since returns the whole ledger.
func (s *Store) GetChangesSince(ctx context.Context, since *time.Time) ([]*domain.ChangeRecord, error) {
	query := `SELECT ` + changeColumns + ` FROM change_records`
	var args []any
	if since != nil {
		query += ` WHERE updated_at > ?`
		args = append(args, formatTime(*since))
	}
	query += ` ORDER BY updated_at ASC, entity_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var records []*domain.ChangeRecord
	for rows.Next() {
		record, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if records == nil {
		records = []*domain.ChangeRecord{}
	}

	return records, nil
}

// GetChangeBatch returns up to limit ledger rows, oldest first.
func (s *Store) GetChangeBatch(ctx context.Context, limit int) ([]*domain.ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+changeColumns+` FROM change_records ORDER BY updated_at ASC, entity_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query change batch: %w", err)
	}
	defer rows.Close()

	var records []*domain.ChangeRecord
	for rows.Next() {
		record, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if records == nil {
		records = []*domain.ChangeRecord{}
	}

	return records, nil
}

// DeleteChanges hard-deletes ledger rows by entity id and reports how many
// went away.
func (s *Store) DeleteChanges(ctx context.Context, entityIDs []string) (int, error) {
	if len(entityIDs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(entityIDs))
	args := make([]any, len(entityIDs))
	for i, entityID := range entityIDs {
		placeholders[i] = "?"
		args[i] = entityID
	}

	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM change_records WHERE entity_id IN (%s)`, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete changes: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// PurgeTombstones hard-deletes every tombstoned ledger row.
func (s *Store) PurgeTombstones(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM change_records WHERE deleted = 1`)
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ResetLedger wipes the ledger. Entity tables are untouched; the next pull
// with no cursor rebuilds clients from /sync/all-data instead.
func (s *Store) ResetLedger(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM change_records`); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	return nil
}
