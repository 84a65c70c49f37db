package domain

// Tag labels pages across books. Name is the identity: unique and compared
// byte-for-byte, never normalized. Clients that want "Reading" and "reading"
// merged do the merging themselves.
type Tag struct {
	Color *string `json:"color,omitempty"`
	ID    string  `json:"id"`
	Name  string  `json:"name"`
}

// PageTag is one row of the page/tag join table.
type PageTag struct {
	PageID string `json:"pageId"`
	TagID  string `json:"tagId"`
}
