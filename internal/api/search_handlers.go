package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagemarkapp/pagemark-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/search",
		Summary:     "Search the library",
		Description: "Full-text search across pages and books",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the library.
type SearchInput struct {
	Query  string `query:"q" required:"true" minLength:"1" maxLength:"200" doc:"Search query"`
	Types  string `query:"types" doc:"Comma-separated types to search (book,page). Omit for all."`
	Tags   string `query:"tags" doc:"Comma-separated tag names to filter by"`
	BookID string `query:"bookId" doc:"Scope page results to one book"`
	Status string `query:"status" doc:"Filter pages by read state"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Max results"`
	Offset int    `query:"offset" minimum:"0" doc:"Pagination offset"`
	Facets bool   `query:"facets" doc:"Include facet counts in the response"`
}

// SearchHitResult contains a single search result.
type SearchHitResult struct {
	ID         string            `json:"id" doc:"Entity ID"`
	Type       string            `json:"type" doc:"Type: book or page"`
	Score      float64           `json:"score" doc:"Relevance score"`
	Title      string            `json:"title" doc:"Display title"`
	URL        string            `json:"url,omitempty" doc:"Page URL"`
	BookID     string            `json:"bookId,omitempty" doc:"Owning book (for pages)"`
	Tags       []string          `json:"tags,omitempty" doc:"Tag names"`
	Fragments  map[string]string `json:"fragments,omitempty" doc:"Highlighted match fragments by field"`
}

// SearchFacetsResponse contains facet counts for filtering.
type SearchFacetsResponse struct {
	Types []search.FacetCount `json:"types,omitempty" doc:"Type facets"`
	Tags  []search.FacetCount `json:"tags,omitempty" doc:"Tag facets"`
}

// SearchResponse contains ranked search results.
type SearchResponse struct {
	Query  string                `json:"query" doc:"Original query"`
	Total  int64                 `json:"total" doc:"Total matches"`
	TookMs int64                 `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult     `json:"hits" doc:"Ranked hits"`
	Facets *SearchFacetsResponse `json:"facets,omitempty" doc:"Facet counts"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.BookID = input.BookID
	params.Status = input.Status
	params.Offset = input.Offset
	params.IncludeFacets = input.Facets

	if input.Limit > 0 {
		params.Limit = input.Limit
	}

	for _, t := range strings.Split(input.Types, ",") {
		switch strings.TrimSpace(t) {
		case "book":
			params.Types = append(params.Types, string(search.DocTypeBook))
		case "page":
			params.Types = append(params.Types, string(search.DocTypePage))
		}
	}

	for _, tag := range strings.Split(input.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			params.Tags = append(params.Tags, tag)
		}
	}

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "error", err, "query", input.Query)
		return nil, err
	}

	resp := SearchResponse{
		Query:  input.Query,
		Total:  int64(result.Total), //nolint:gosec // Doc counts stay far below int64.
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResult, len(result.Hits)),
	}

	for i := range result.Hits {
		hit := &result.Hits[i]
		resp.Hits[i] = SearchHitResult{
			ID:        hit.ID,
			Type:      string(hit.Type),
			Score:     hit.Score,
			Title:     hit.Name,
			URL:       hit.URL,
			BookID:    hit.BookID,
			Tags:      hit.Tags,
			Fragments: hit.Highlights,
		}
	}

	if input.Facets {
		resp.Facets = &SearchFacetsResponse{
			Types: result.Facets.Types,
			Tags:  result.Facets.Tags,
		}
	}

	return &SearchOutput{Body: resp}, nil
}
