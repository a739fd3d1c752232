// Package auth holds the authorization policy consumed by the lead
// lifecycle. Authentication itself happens in the HTTP middleware; this
// package only answers "may this actor mutate this lead".
package auth

import (
	"context"

	"leadbook/internal/leads/domain"

	"github.com/google/uuid"
)

// Role names carried in access-token claims.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleBooker  = "booker"
)

// Authorizer implements the lead mutation policy: admins and managers may
// mutate any lead; bookers may mutate unassigned leads and leads assigned
// to them.
type Authorizer struct{}

// NewAuthorizer creates the policy.
func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// CanMutate reports whether the actor may mutate the lead.
func (a *Authorizer) CanMutate(_ context.Context, actorID uuid.UUID, roles []string, lead *domain.Lead) bool {
	for _, role := range roles {
		if role == RoleAdmin || role == RoleManager {
			return true
		}
	}
	if !hasRole(roles, RoleBooker) {
		return false
	}
	if lead.BookerID == nil {
		return true
	}
	return *lead.BookerID == actorID
}

func hasRole(roles []string, want string) bool {
	for _, role := range roles {
		if role == want {
			return true
		}
	}
	return false
}
