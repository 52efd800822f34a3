package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_EffectiveRole_Priority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		roles    []Role
		legacy   Role
		expected Role
	}{
		{"hod beats dean", []Role{RoleDean, RoleHod}, "", RoleHod},
		{"dean beats admin", []Role{RoleAdmin, RoleDean}, "", RoleDean},
		{"admin beats plain roles", []Role{RoleFaculty, RoleAdmin}, "", RoleAdmin},
		{"single role", []Role{RoleRegistrar}, "", RoleRegistrar},
		{"empty set falls back to legacy column", nil, RoleCoe, RoleCoe},
		{"nothing at all defaults to student", nil, "", RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u := &User{LegacyRole: tt.legacy}
			for _, r := range tt.roles {
				u.GrantRole(r)
			}
			assert.Equal(t, tt.expected, u.EffectiveRole())
		})
	}
}

func TestUser_HasRole_LegacyFallback(t *testing.T) {
	t.Parallel()

	u := &User{LegacyRole: RoleHod}
	assert.True(t, u.HasRole(RoleHod), "legacy column should count when role set is empty")
	assert.False(t, u.HasRole(RoleDean))

	// Once the role set is populated the legacy column no longer applies.
	u.GrantRole(RoleDean)
	assert.True(t, u.HasRole(RoleDean))
	assert.False(t, u.HasRole(RoleHod))
}

func TestUser_GrantRole_Idempotent(t *testing.T) {
	t.Parallel()

	u := &User{}
	u.GrantRole(RoleMentor)
	u.GrantRole(RoleMentor)
	assert.Len(t, u.Roles, 1)
}

func TestUserRole_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	u := &User{ID: 7, Email: "iyer@veltech.edu.in", Name: "Dr. Iyer"}
	u.GrantRole(RoleHod)
	u.GrantRole(RoleMentor)

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"roles":["HOD","MENTOR"]`)

	// Cached and client-decoded users must come back with the same role set.
	var got User
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.True(t, got.HasRole(RoleHod))
	assert.True(t, got.HasRole(RoleMentor))
	assert.Equal(t, RoleHod, got.EffectiveRole())
}
