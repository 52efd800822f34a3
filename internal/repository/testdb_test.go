package repository

import (
	"testing"

	"paperflow/internal/database"
	"paperflow/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, email, department string, roles ...models.Role) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, Department: department}
	for _, r := range roles {
		u.GrantRole(r)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}
