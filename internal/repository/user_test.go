package repository

import (
	"context"
	"testing"

	"paperflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByEmail_Normalizes(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "Meera", "meera@college.edu", "CSE", models.RoleMentor)

	user, err := repo.GetByEmail(ctx, "  MEERA@College.EDU ")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Meera", user.Name)
	assert.True(t, user.HasRole(models.RoleMentor))

	missing, err := repo.GetByEmail(ctx, "nobody@college.edu")
	require.NoError(t, err)
	assert.Nil(t, missing, "unknown email should return nil, not an error")
}

func TestUserRepository_GrantRole_Idempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "Ravi", "ravi@college.edu", "ECE")

	require.NoError(t, repo.GrantRole(ctx, u.ID, models.RoleHod))
	require.NoError(t, repo.GrantRole(ctx, u.ID, models.RoleHod))

	var count int64
	require.NoError(t, db.Model(&models.UserRole{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_FirstByRole(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := seedUser(t, db, "Dean One", "dean1@college.edu", "CSE", models.RoleDean)
	seedUser(t, db, "Dean Two", "dean2@college.edu", "MECH", models.RoleDean)

	t.Run("lowest id wins without department filter", func(t *testing.T) {
		u, err := repo.FirstByRole(ctx, models.RoleDean)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, first.ID, u.ID)
	})

	t.Run("department filter narrows the pick", func(t *testing.T) {
		u, err := repo.FirstByRoleAndDepartment(ctx, models.RoleDean, "MECH")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "Dean Two", u.Name)
	})

	t.Run("no holder returns nil", func(t *testing.T) {
		u, err := repo.FirstByRole(ctx, models.RoleRegistrar)
		require.NoError(t, err)
		assert.Nil(t, u)
	})
}

func TestUserRepository_FirstByRole_LegacyColumn(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	legacy := &models.User{Name: "Old CoE", Email: "coe@college.edu", LegacyRole: models.RoleCoe}
	require.NoError(t, db.Create(legacy).Error)

	u, err := repo.FirstByRole(ctx, models.RoleCoe)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, legacy.ID, u.ID)
}

func TestUserRepository_ListByRoles(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "CSE Mentor", "m1@college.edu", "CSE", models.RoleMentor)
	seedUser(t, db, "CSE Faculty", "f1@college.edu", "CSE", models.RoleFaculty)
	seedUser(t, db, "MECH Mentor", "m2@college.edu", "MECH", models.RoleMentor)
	seedUser(t, db, "CSE Student", "s1@college.edu", "CSE", models.RoleStudent)

	users, err := repo.ListByRoles(ctx, []models.Role{models.RoleMentor, models.RoleFaculty}, "CSE")
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, "CSE", u.Department)
	}

	all, err := repo.ListByRoles(ctx, []models.Role{models.RoleMentor, models.RoleFaculty}, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUserRepository_CountByRole(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "S1", "s1@college.edu", "CSE", models.RoleStudent)
	seedUser(t, db, "S2", "s2@college.edu", "CSE", models.RoleStudent)
	seedUser(t, db, "H1", "h1@college.edu", "CSE", models.RoleHod)

	n, err := repo.CountByRole(ctx, models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}
