package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

func TestCanViewStudentScenarios(t *testing.T) {
	access := NewAccessService()
	student := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}

	tests := []struct {
		name string
		meta models.ContentMeta
		want bool
	}{
		{
			name: "published matching cohort",
			meta: models.ContentMeta{OwnerID: "t1", Branch: "CSE", Year: "2nd", Published: true},
			want: true,
		},
		{
			name: "published wildcard branch and year",
			meta: models.ContentMeta{OwnerID: "t1", Branch: "All", Year: "All", Published: true},
			want: true,
		},
		{
			name: "published wildcard year only",
			meta: models.ContentMeta{OwnerID: "t1", Branch: "CSE", Year: "All", Published: true},
			want: true,
		},
		{
			name: "published wrong branch",
			meta: models.ContentMeta{OwnerID: "t1", Branch: "ECE", Year: "2nd", Published: true},
			want: false,
		},
		{
			name: "published wrong year",
			meta: models.ContentMeta{OwnerID: "t1", Branch: "CSE", Year: "3rd", Published: true},
			want: false,
		},
		{
			name: "published wrong cohort but allow-listed",
			meta: models.ContentMeta{OwnerID: "t1", Branch: "ECE", Year: "3rd", AllowedUserIDs: []string{"s1"}, Published: true},
			want: true,
		},
		{
			name: "unpublished matching cohort",
			meta: models.ContentMeta{OwnerID: "t1", Branch: "CSE", Year: "2nd", Published: false},
			want: false,
		},
		{
			name: "unpublished allow-listed",
			meta: models.ContentMeta{OwnerID: "t1", Branch: "CSE", Year: "2nd", AllowedUserIDs: []string{"s1"}, Published: false},
			want: false,
		},
		{
			name: "allow-list for someone else",
			meta: models.ContentMeta{OwnerID: "t1", Branch: "ECE", Year: "3rd", AllowedUserIDs: []string{"s2"}, Published: true},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.CanView(student, tt.meta))
		})
	}
}

func TestCanViewIsDeterministic(t *testing.T) {
	access := NewAccessService()
	student := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}
	meta := models.ContentMeta{OwnerID: "t1", Branch: "CSE", Year: "2nd", Published: true}

	first := access.CanView(student, meta)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, access.CanView(student, meta))
	}
}

func TestCanViewPrivilegedRoles(t *testing.T) {
	access := NewAccessService()
	hidden := models.ContentMeta{OwnerID: "t1", Branch: "CSE", Year: "2nd", Published: false}

	assert.True(t, access.CanView(&models.User{ID: "a1", Role: models.RoleAdmin}, hidden))
	assert.True(t, access.CanView(&models.User{ID: "t2", Role: models.RoleTeacher, Department: "ECE"}, hidden))
	assert.True(t, access.CanView(&models.User{ID: "t1", Role: models.RoleTeacher}, hidden))
	assert.False(t, access.CanView(nil, hidden))
}

func TestCanMutate(t *testing.T) {
	access := NewAccessService()
	meta := models.ContentMeta{OwnerID: "t1", Branch: "CSE", Year: "2nd", Published: true}

	assert.True(t, access.CanMutate(&models.User{ID: "t1", Role: models.RoleTeacher}, meta))
	assert.True(t, access.CanMutate(&models.User{ID: "a1", Role: models.RoleAdmin}, meta))
	assert.False(t, access.CanMutate(&models.User{ID: "t2", Role: models.RoleTeacher}, meta))
	assert.False(t, access.CanMutate(&models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}, meta))
	assert.False(t, access.CanMutate(nil, meta))
}

func TestCohortMatches(t *testing.T) {
	access := NewAccessService()

	assert.True(t, access.CohortMatches("CSE", "2nd", "CSE", "2nd"))
	assert.True(t, access.CohortMatches("CSE", "2nd", "All", "2nd"))
	assert.True(t, access.CohortMatches("CSE", "2nd", "All", "All"))
	assert.False(t, access.CohortMatches("CSE", "2nd", "ECE", "2nd"))
	assert.False(t, access.CohortMatches("CSE", "2nd", "CSE", "3rd"))
}
