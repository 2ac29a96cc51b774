package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// ScopeAll is the wildcard value accepted for branch and year cohort scopes.
const ScopeAll = "All"

// User represents an application user stored in the users table.
// Branch and Year are set for students, Department for teachers.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Branch       string     `db:"branch" json:"branch,omitempty"`
	Year         string     `db:"year" json:"year,omitempty"`
	Department   string     `db:"department" json:"department,omitempty"`
	Approved     bool       `db:"approved" json:"approved"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Approved *bool
	Active   *bool
	Branch   string
	Year     string
	Search   string
	PageParams
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives pagination metadata from normalized page params.
func NewPagination(page, pageSize, total int) *Pagination {
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return &Pagination{Page: page, PageSize: pageSize, TotalCount: total, TotalPages: pages}
}

// PageParams are the shared paging and sorting knobs accepted by every
// listing endpoint. Zero values are normalized by the repositories.
type PageParams struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
