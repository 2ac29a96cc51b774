package service

import (
	"github.com/lecturehub/lecturehub-api/internal/models"
)

// AccessService is the access policy resolver. Every decision is a pure
// function of the principal and content snapshots passed in; it performs no
// I/O and holds no state, so the same inputs always produce the same answer.
//
// The student visibility rule here must stay in lockstep with
// repository.visibilityPredicate, which applies the identical rule in SQL
// for listings.
type AccessService struct{}

// NewAccessService constructs the resolver.
func NewAccessService() *AccessService {
	return &AccessService{}
}

// CohortMatches reports whether a user cohort falls inside a content scope.
// The scope side accepts the "All" wildcard; a user cohort is always
// concrete.
func (s *AccessService) CohortMatches(userBranch, userYear, scopeBranch, scopeYear string) bool {
	branchOK := scopeBranch == models.ScopeAll || scopeBranch == userBranch
	yearOK := scopeYear == models.ScopeAll || scopeYear == userYear
	return branchOK && yearOK
}

// CanView reports whether the principal may read the content item.
// Admins and teachers see everything; students see published items whose
// scope matches their cohort, or items that allow-list them explicitly.
func (s *AccessService) CanView(user *models.User, meta models.ContentMeta) bool {
	if user == nil {
		return false
	}
	switch user.Role {
	case models.RoleAdmin, models.RoleTeacher:
		return true
	}
	if user.ID == meta.OwnerID {
		return true
	}
	if !meta.Published {
		return false
	}
	if s.CohortMatches(user.Branch, user.Year, meta.Branch, meta.Year) {
		return true
	}
	for _, id := range meta.AllowedUserIDs {
		if id == user.ID {
			return true
		}
	}
	return false
}

// CanMutate reports whether the principal may modify or delete the content
// item. Only the owner and admins may.
func (s *AccessService) CanMutate(user *models.User, meta models.ContentMeta) bool {
	if user == nil {
		return false
	}
	return user.Role == models.RoleAdmin || user.ID == meta.OwnerID
}
