// Package domain contains the core business entities for the Pagemark bookmark library.
package domain

// Book is a folder-like container for pages. Books nest through ParentID to
// form a forest. The server does not defend against parent cycles; it stores
// whatever tree the clients agree on.
type Book struct {
	CreatedAt FlexTime  `json:"createdAt"`
	UpdatedAt FlexTime  `json:"updatedAt"`
	ParentID  *string   `json:"parentId,omitempty"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Emoji     string    `json:"emoji,omitempty"`
	Order     FlexInt64 `json:"order"`
}
