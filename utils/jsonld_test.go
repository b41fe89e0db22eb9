package utils

import (
	"net/http/httptest"
	"testing"
)

func TestParsePaginationDefaultsAndCap(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/event/", nil)
	p, err := ParsePagination(r)
	if err != nil {
		t.Fatal(err)
	}
	if p.Page != 1 || p.PageSize != 20 {
		t.Errorf("defaults: got page=%d size=%d", p.Page, p.PageSize)
	}

	r = httptest.NewRequest("GET", "/v1/event/?page=3&page_size=500", nil)
	p, err = ParsePagination(r)
	if err != nil {
		t.Fatal(err)
	}
	if p.Page != 3 || p.PageSize != 100 {
		t.Errorf("capped: got page=%d size=%d", p.Page, p.PageSize)
	}
	if p.Skip() != 200 {
		t.Errorf("skip: got %d", p.Skip())
	}

	r = httptest.NewRequest("GET", "/v1/event/?page=0", nil)
	if _, err := ParsePagination(r); err == nil {
		t.Error("page=0 should be rejected")
	}
}

func TestNewEnvelopeLinks(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/event/?page=2&page_size=10", nil)
	p := Pagination{Page: 2, PageSize: 10}

	env := NewEnvelope(r, p, 35, []any{"a"})
	if env.Meta.Count != 35 {
		t.Errorf("count: got %d", env.Meta.Count)
	}
	if env.Meta.Next == nil || env.Meta.Previous == nil {
		t.Fatal("middle page should link both ways")
	}

	env = NewEnvelope(r, Pagination{Page: 4, PageSize: 10}, 35, nil)
	if env.Meta.Next != nil {
		t.Error("last page should have no next link")
	}
	if env.Data == nil {
		t.Error("nil items should serialize as an empty array")
	}
}

func TestAPIRoot(t *testing.T) {
	if got := APIRoot(httptest.NewRequest("GET", "/v0.1/event/", nil)); got != "/v0.1" {
		t.Errorf("got %q", got)
	}
	if got := APIRoot(httptest.NewRequest("GET", "/v1/event/", nil)); got != "/v1" {
		t.Errorf("got %q", got)
	}
}

func TestDecorateLD(t *testing.T) {
	type thing struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := DecorateLD(thing{ID: "x:1", Name: "n"}, "/v1", "event", "x:1")
	if out["@id"] != "/v1/event/x:1/" {
		t.Errorf("@id: got %v", out["@id"])
	}
	if out["@type"] != "event" || out["name"] != "n" {
		t.Errorf("decorated object wrong: %v", out)
	}
}
