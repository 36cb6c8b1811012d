package body

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hsarchitect/folio/config"
)

func testBodyConfig() *config.Config {
	return &config.Config{
		Server: config.Server{
			Limits: config.ServerLimits{MaxJsonBody: 256},
		},
	}
}

func read(t *testing.T, contentType, payload string) (Fields, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	f, _ := Read(testBodyConfig(), rr, req)
	return f, rr
}

func TestReadJSONInvalid(t *testing.T) {
	f, rr := read(t, "application/json", `{"invalid":`)

	if f != nil {
		t.Fatalf("expected invalid JSON to return nil fields")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Invalid JSON body") {
		t.Fatalf("expected invalid request response, got %q", rr.Body.String())
	}
}

func TestReadJSONTooLarge(t *testing.T) {
	_, rr := read(t, "application/json", `{"title":"`+strings.Repeat("x", 400)+`"}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestReadRejectsOtherContentTypes(t *testing.T) {
	_, rr := read(t, "text/plain", "hello")
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
}

func TestReadEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	f, ok := Read(testBodyConfig(), httptest.NewRecorder(), req)
	if !ok || len(f) != 0 {
		t.Fatalf("expected empty fields, got %v %v", f, ok)
	}
}

func TestReadForm(t *testing.T) {
	f, rr := read(t, "application/x-www-form-urlencoded", "name=Ana&category_ids[]=1&category_ids[]=2")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if f.Trimmed("name") != "Ana" {
		t.Fatalf("unexpected name %v", f["name"])
	}
	ids, ok := f.IntSlice("category_ids")
	if !ok || len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("unexpected ids %v %v", ids, ok)
	}
}

func TestFieldAccessors(t *testing.T) {
	f, _ := read(t, "application/json", `{"title":"  Villa ","year":2021,"area":"","alt":null,"sort_order":"3","bad":"x","ratio":1.5,"ids":[3,"4"]}`)

	if !f.Has("alt") || f.Has("missing") {
		t.Fatalf("unexpected Has results")
	}
	if f.Trimmed("title") != "Villa" {
		t.Fatalf("unexpected title %q", f.Trimmed("title"))
	}
	if v, ok := f.Int("year"); !ok || v != 2021 {
		t.Fatalf("unexpected year %d %v", v, ok)
	}
	if v := f.IntOrZero("sort_order"); v != 3 {
		t.Fatalf("expected string integer to coerce, got %d", v)
	}
	if v := f.IntOrZero("bad"); v != 0 {
		t.Fatalf("expected fallback to zero, got %d", v)
	}
	if _, ok := f.Int("ratio"); ok {
		t.Fatalf("expected fractional numbers to be rejected")
	}
	if v, ok := f.NullableString("alt"); !ok || v != nil {
		t.Fatalf("expected null alt")
	}
	if v, ok := f.NullableString("area"); !ok || v != nil {
		t.Fatalf("expected empty area to become nil")
	}
	if v, ok := f.NullableInt("year"); !ok || v == nil || *v != 2021 {
		t.Fatalf("unexpected nullable year")
	}
	if _, ok := f.NullableInt("bad"); ok {
		t.Fatalf("expected malformed nullable int to fail")
	}
	if ids, ok := f.IntSlice("ids"); !ok || len(ids) != 2 || ids[1] != 4 {
		t.Fatalf("unexpected ids %v", ids)
	}
}
