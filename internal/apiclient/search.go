package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SearchByKeyword runs a keyword search. Tags narrow the results.
func (c *Client) SearchByKeyword(ctx context.Context, keyword string, tags []string, page, limit int) (*SearchResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	q := url.Values{
		"keyword": {keyword},
		"page":    {strconv.Itoa(page)},
		"limit":   {strconv.Itoa(limit)},
	}
	if len(tags) > 0 {
		q.Set("tags", strings.Join(tags, ","))
	}

	var res SearchResponse
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/search", query: q}, &res); err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return &res, nil
}

// SearchSimilar returns documents whose vectors are close to the given one.
func (c *Client) SearchSimilar(ctx context.Context, documentID string, limit int) (*SearchResponse, error) {
	if limit < 1 {
		limit = 5
	}
	var res SearchResponse
	err := c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/search/similar/" + seg(documentID),
		query:  url.Values{"limit": {strconv.Itoa(limit)}},
		route:  "/search/similar/{id}",
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("similar search: %w", err)
	}
	return &res, nil
}

// SearchByQuestion asks a question answered from the indexed documents,
// optionally restricted to documentIDs.
func (c *Client) SearchByQuestion(ctx context.Context, question string, documentIDs []string) (*Answer, error) {
	q := url.Values{"question": {question}}
	if len(documentIDs) > 0 {
		q.Set("document_ids", strings.Join(documentIDs, ","))
	}
	var ans Answer
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/search/qa", query: q}, &ans); err != nil {
		return nil, fmt.Errorf("question search: %w", err)
	}
	return &ans, nil
}

// PopularTags returns the most used tags.
func (c *Client) PopularTags(ctx context.Context, limit int) ([]PopularTag, error) {
	if limit < 1 {
		limit = 10
	}
	var tags []PopularTag
	err := c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/search/tags/popular",
		query:  url.Values{"limit": {strconv.Itoa(limit)}},
	}, &tags)
	if err != nil {
		return nil, fmt.Errorf("popular tags: %w", err)
	}
	return tags, nil
}
