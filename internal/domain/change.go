package domain

import "fmt"

// EntityType identifies which kind of entity a change record refers to.
type EntityType string

// Entity types that participate in sync.
const (
	EntityTypeBook EntityType = "book"
	EntityTypePage EntityType = "page"
	EntityTypeTag  EntityType = "tag"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeBook, EntityTypePage, EntityTypeTag:
		return true
	}
	return false
}

// ParseEntityType converts a wire string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// ChangeRecord is one row of the change ledger: the latest version stamp for
// a synced entity. There is at most one record per entity id, ever. Every
// recorded mutation bumps Version by exactly one and refreshes UpdatedAt with
// the ledger write time; client-supplied timestamps never reach the ledger.
//
// Deleted marks a tombstone. Clients discover deletions only through
// tombstoned records in a pull's change list; entity payloads never include
// deleted entities.
type ChangeRecord struct {
	UpdatedAt  FlexTime   `json:"updatedAt"`
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Version    FlexInt64  `json:"version"`
	Deleted    bool       `json:"deleted"`
}
