package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// normalizePage clamps paging values and applies the default sort. Invalid
// or missing values fall back to page=1, size=10, created_at DESC. SortBy is
// checked against the caller's allow-list so it can be interpolated into SQL.
func normalizePage(p models.PageParams, allowedSorts map[string]bool) models.PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 || p.PageSize > maxPageSize {
		p.PageSize = defaultPageSize
	}
	if p.SortBy == "" || !allowedSorts[p.SortBy] {
		p.SortBy = "created_at"
	}
	order := strings.ToUpper(p.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	p.SortOrder = order
	return p
}

// pageClause renders ORDER BY / LIMIT / OFFSET for normalized params.
func pageClause(p models.PageParams) string {
	offset := (p.Page - 1) * p.PageSize
	return fmt.Sprintf("ORDER BY %s %s LIMIT %d OFFSET %d", p.SortBy, p.SortOrder, p.PageSize, offset)
}

// IsUniqueViolation reports whether err is a Postgres duplicate-key error.
// Services translate these into Conflict-class errors instead of surfacing a
// generic server error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
