package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

func TestNormalizePageDefaults(t *testing.T) {
	p := normalizePage(models.PageParams{}, map[string]bool{"title": true})
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, defaultPageSize, p.PageSize)
	assert.Equal(t, "created_at", p.SortBy)
	assert.Equal(t, "DESC", p.SortOrder)
}

func TestNormalizePageClampsInvalidValues(t *testing.T) {
	p := normalizePage(models.PageParams{Page: -3, PageSize: 5000, SortBy: "evil; DROP TABLE", SortOrder: "sideways"}, map[string]bool{"title": true})
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, defaultPageSize, p.PageSize)
	assert.Equal(t, "created_at", p.SortBy)
	assert.Equal(t, "DESC", p.SortOrder)
}

func TestNormalizePageKeepsAllowedSort(t *testing.T) {
	p := normalizePage(models.PageParams{Page: 2, PageSize: 25, SortBy: "title", SortOrder: "asc"}, map[string]bool{"title": true})
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 25, p.PageSize)
	assert.Equal(t, "title", p.SortBy)
	assert.Equal(t, "ASC", p.SortOrder)
}

func TestPageClause(t *testing.T) {
	p := normalizePage(models.PageParams{Page: 3, PageSize: 10}, nil)
	assert.Equal(t, "ORDER BY created_at DESC LIMIT 10 OFFSET 20", pageClause(p))
}

func TestNewPagination(t *testing.T) {
	pg := models.NewPagination(2, 10, 35)
	assert.Equal(t, 4, pg.TotalPages)
	assert.Equal(t, 35, pg.TotalCount)
}
