package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"linkedevents/apierr"
)

const contextBase = "http://schema.org"

// Meta is the pagination header of every list response.
type Meta struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// Envelope is the {meta, data} wrapper used by all list endpoints.
type Envelope struct {
	Meta Meta  `json:"meta"`
	Data []any `json:"data"`
}

// Pagination is parsed from page/page_size with bounded defaults.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) Skip() int64  { return int64((p.Page - 1) * p.PageSize) }
func (p Pagination) Limit() int64 { return int64(p.PageSize) }

func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{Page: 1, PageSize: 20}
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, apierr.Param("page", v, "expected a positive integer")
		}
		p.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, apierr.Param("page_size", v, "expected a positive integer")
		}
		if n > 100 {
			n = 100
		}
		p.PageSize = n
	}
	return p, nil
}

// PageURL rewrites the request URL for the given page number.
func PageURL(u *url.URL, page int) string {
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	copied := *u
	copied.RawQuery = q.Encode()
	return copied.String()
}

// NewEnvelope wraps decorated items with count and next/previous links.
func NewEnvelope(r *http.Request, p Pagination, count int64, items []any) Envelope {
	meta := Meta{Count: count}
	if int64(p.Page*p.PageSize) < count {
		next := PageURL(r.URL, p.Page+1)
		meta.Next = &next
	}
	if p.Page > 1 {
		prev := PageURL(r.URL, p.Page-1)
		meta.Previous = &prev
	}
	if items == nil {
		items = []any{}
	}
	return Envelope{Meta: meta, Data: items}
}

// DecorateLD re-shapes a resource as a JSON-LD flavored object carrying
// @id/@type/@context alongside its own fields. The @id is the resource URL
// under the versioned API root.
func DecorateLD(obj any, apiRoot, resource, id string) map[string]any {
	raw, err := json.Marshal(obj)
	if err != nil {
		return map[string]any{"@id": ResourceURL(apiRoot, resource, id)}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"@id": ResourceURL(apiRoot, resource, id)}
	}
	out["@id"] = ResourceURL(apiRoot, resource, id)
	out["@type"] = resource
	out["@context"] = contextBase
	return out
}

// DecorateAll maps a typed slice through fn into the []any the envelope wants.
func DecorateAll[T any](items []T, fn func(T) map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, fn(it))
	}
	return out
}

func ResourceURL(apiRoot, resource, id string) string {
	return fmt.Sprintf("%s/%s/%s/", apiRoot, resource, url.PathEscape(id))
}

// APIRoot extracts the version prefix ("/v1" or "/v0.1") from the request.
func APIRoot(r *http.Request) string {
	path := r.URL.Path
	if len(path) >= 5 && path[:5] == "/v0.1" {
		return "/v0.1"
	}
	return "/v1"
}
