// Package search provides full-text search functionality using Bleve.
// It enables search across books and pages with tag filtering, fuzzy
// matching, and match highlighting.
package search

import (
	"github.com/pagemarkapp/pagemark-server/internal/domain"
)

// DocType represents the type of document in the unified index.
type DocType string

// Document types for the search index.
const (
	DocTypeBook DocType = "book"
	DocTypePage DocType = "page"
)

// SearchDocument is the unified document structure for the Bleve index.
// Both searchable entities are indexed as SearchDocuments with type
// discrimination.
//
// Design note: tag names are denormalized into page documents so a single
// query can match pages by tag without touching the database. The trade-off
// is that tag renames only reach the index on the next reindex; renames are
// rare and the reindex endpoint exists.
type SearchDocument struct {
	// Identity
	ID   string  `json:"id"`   // Original entity ID (client-generated or tag-/inst- minted)
	Type DocType `json:"type"` // Discriminator for result grouping

	// Primary searchable text (book title or page title)
	Name string `json:"name"`

	// Page-specific fields (empty for books)
	URL     string   `json:"url,omitempty"`
	Content string   `json:"content,omitempty"` // Extracted text when available, raw content otherwise
	BookID  string   `json:"book_id,omitempty"`
	Status  string   `json:"status,omitempty"`
	Tags    []string `json:"tags,omitempty"` // Denormalized tag names

	// Timestamps for sorting
	CreatedAt int64 `json:"created_at"` // Unix millis
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"type":       string(d.Type),
		"name":       d.Name,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	// Optional fields - only add if non-empty
	if d.URL != "" {
		m["url"] = d.URL
	}
	if d.Content != "" {
		m["content"] = d.Content
	}
	if d.BookID != "" {
		m["book_id"] = d.BookID
	}
	if d.Status != "" {
		m["status"] = d.Status
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}

	return m
}

// BookToSearchDocument converts a domain Book to a SearchDocument.
func BookToSearchDocument(book *domain.Book) *SearchDocument {
	return &SearchDocument{
		ID:        book.ID,
		Type:      DocTypeBook,
		Name:      book.Title,
		CreatedAt: book.CreatedAt.Time.UnixMilli(),
		UpdatedAt: book.UpdatedAt.Time.UnixMilli(),
	}
}

// PageToSearchDocument converts a domain Page to a SearchDocument.
// Tags come from page.Tags when the caller populated them; callers that
// index right after a write pass the tag set they just resolved.
func PageToSearchDocument(page *domain.Page) *SearchDocument {
	doc := &SearchDocument{
		ID:        page.ID,
		Type:      DocTypePage,
		Name:      page.Title,
		URL:       page.URL,
		Status:    page.Status,
		CreatedAt: page.CreatedAt.Time.UnixMilli(),
		UpdatedAt: page.UpdatedAt.Time.UnixMilli(),
	}

	// Extracted text reads better than raw markup when we have it.
	doc.Content = page.ExtractedContent
	if doc.Content == "" {
		doc.Content = page.Content
	}

	if page.BookID != nil {
		doc.BookID = *page.BookID
	}

	for _, tag := range page.Tags {
		doc.Tags = append(doc.Tags, tag.Name)
	}

	return doc
}
