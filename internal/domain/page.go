package domain

// Page is a saved bookmark. BookID is nil for unfiled pages. Content and
// ExtractedContent are opaque client-supplied text; the server stores and
// returns them without ever interpreting them.
//
// Tags is populated on reads from the page/tag join table. It is never
// written through this struct; associations change through the sync push
// payload's tag list. Wire responses always carry a tags array, so readers
// that attach tags set an empty slice rather than leaving it nil.
type Page struct {
	CreatedAt        FlexTime  `json:"createdAt"`
	UpdatedAt        FlexTime  `json:"updatedAt"`
	BookID           *string   `json:"bookId,omitempty"`
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	URL              string    `json:"url,omitempty"`
	Content          string    `json:"content,omitempty"`
	ExtractedContent string    `json:"extractedContent,omitempty"`
	Status           string    `json:"status,omitempty"`
	Tags             []*Tag    `json:"tags"`
	Order            FlexInt64 `json:"order"`
	Pinned           bool      `json:"pinned"`
}
