package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func pageContext(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestPageParamsFromQueryDefaults(t *testing.T) {
	params := pageParamsFromQuery(pageContext("/videos"))

	if params.Page != 1 {
		t.Fatalf("unexpected page: %d", params.Page)
	}
	// Zero size defers to the repository default rather than pinning one here.
	if params.PageSize != 0 {
		t.Fatalf("unexpected page size: %d", params.PageSize)
	}
	if params.SortBy != "" || params.SortOrder != "" {
		t.Fatalf("unexpected sort: %q %q", params.SortBy, params.SortOrder)
	}
}

func TestPageParamsFromQueryExplicit(t *testing.T) {
	params := pageParamsFromQuery(pageContext("/videos?page=3&page_size=25&sort_by=title&sort_order=asc"))

	if params.Page != 3 {
		t.Fatalf("unexpected page: %d", params.Page)
	}
	if params.PageSize != 25 {
		t.Fatalf("unexpected page size: %d", params.PageSize)
	}
	if params.SortBy != "title" || params.SortOrder != "asc" {
		t.Fatalf("unexpected sort: %q %q", params.SortBy, params.SortOrder)
	}
}

func TestPageParamsFromQueryGarbage(t *testing.T) {
	params := pageParamsFromQuery(pageContext("/videos?page=abc&page_size=xyz"))

	if params.Page != 0 {
		t.Fatalf("unexpected page: %d", params.Page)
	}
	if params.PageSize != 0 {
		t.Fatalf("unexpected page size: %d", params.PageSize)
	}
}
