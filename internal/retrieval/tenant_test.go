package retrieval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

func TestTenants_ListsAllTenantsOfUser(t *testing.T) {
	s := newStore(t)
	scope := scopeFor(t, s, "u1")

	block, err := newSet(s).Tenants(t.Context(), request("How many organizations are there?", scope))
	require.NoError(t, err)

	require.Len(t, block.Entries, 2)
	text := block.Render()
	assert.Contains(t, text, "You belong to 2 organizations:")
	assert.Contains(t, text, "- Acme: 2 members, 1 workspace")
	assert.Contains(t, text, "- Globex: 1 member, 1 workspace")
}

func TestTenants_PrimaryTenantListedFirstWithOtherMemberships(t *testing.T) {
	s := newStore(t)
	s.AddUser(domain.User{ID: "u1", Name: "Dana", PrimaryTenantID: "t2"})
	scope := scopeFor(t, s, "u1")

	block, err := newSet(s).Tenants(t.Context(), request("which organization am i in", scope))
	require.NoError(t, err)

	require.Len(t, block.Entries, 2)
	assert.Equal(t, "t2", block.Entries[0].EntityID)
	assert.Equal(t, "t1", block.Entries[1].EntityID)
	text := block.Render()
	assert.Contains(t, text, "You belong to 2 organizations:")
	assert.Contains(t, text, "- Globex (primary): 1 member, 1 workspace")
	assert.Contains(t, text, "- Acme: 2 members, 1 workspace")
}

func TestTenants_PrimaryTierMembershipFailurePropagates(t *testing.T) {
	s := newStore(t)
	s.AddUser(domain.User{ID: "u1", Name: "Dana", PrimaryTenantID: "t1"})
	scope := scopeFor(t, s, "u1")
	s.SetFailure("TenantsForUser", errors.New("db down"))

	_, err := newSet(s).Tenants(t.Context(), request("organizations", scope))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestTenants_MissingPrimaryFallsThrough(t *testing.T) {
	s := newStore(t)
	scope := scopeFor(t, s, "u1")
	scope.PrimaryTenantID = "t-deleted"

	block, err := newSet(s).Tenants(t.Context(), request("organizations", scope))
	require.NoError(t, err)
	assert.Len(t, block.Entries, 2)
}

func TestTenants_MembershipTierWhenNoWorkspaces(t *testing.T) {
	s := newStore(t)
	scope := &domain.Scope{UserID: "u2"}

	block, err := newSet(s).Tenants(t.Context(), request("organizations", scope))
	require.NoError(t, err)

	require.Len(t, block.Entries, 2, "u2 created Globex and is a member of Acme")
}

func TestTenants_ExplicitBlockWhenNothingFound(t *testing.T) {
	s := newStore(t)
	s.AddUser(domain.User{ID: "u3", Name: "Fay"})
	scope := scopeFor(t, s, "u3")

	block, err := newSet(s).Tenants(t.Context(), request("organizations", scope))
	require.NoError(t, err)

	require.False(t, block.IsEmpty())
	assert.Contains(t, block.Render(), "No organizations are associated with your account.")
}

func TestTenants_StoreFailurePropagates(t *testing.T) {
	s := newStore(t)
	scope := scopeFor(t, s, "u1")
	s.SetFailure("TenantsForWorkspaces", errors.New("db down"))

	_, err := newSet(s).Tenants(t.Context(), request("organizations", scope))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
