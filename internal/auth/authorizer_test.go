package auth

import (
	"context"
	"testing"

	"leadbook/internal/leads/domain"

	"github.com/google/uuid"
)

func TestCanMutate(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	ownedLead := &domain.Lead{ID: uuid.New(), BookerID: &owner}
	unassignedLead := &domain.Lead{ID: uuid.New()}

	tests := []struct {
		name    string
		actorID uuid.UUID
		roles   []string
		lead    *domain.Lead
		want    bool
	}{
		{"admin mutates any lead", other, []string{RoleAdmin}, ownedLead, true},
		{"manager mutates any lead", other, []string{RoleManager}, ownedLead, true},
		{"booker mutates own lead", owner, []string{RoleBooker}, ownedLead, true},
		{"booker mutates unassigned lead", other, []string{RoleBooker}, unassignedLead, true},
		{"booker cannot mutate another booker's lead", other, []string{RoleBooker}, ownedLead, false},
		{"no roles cannot mutate", other, nil, unassignedLead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthorizer()
			if got := a.CanMutate(context.Background(), tt.actorID, tt.roles, tt.lead); got != tt.want {
				t.Errorf("CanMutate = %v, want %v", got, tt.want)
			}
		})
	}
}
