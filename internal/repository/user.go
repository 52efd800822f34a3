// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"paperflow/internal/cache"
	"paperflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GrantRole(ctx context.Context, userID uint, role models.Role) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	ListByRoles(ctx context.Context, roles []models.Role, department string) ([]models.User, error)
	FirstByRole(ctx context.Context, role models.Role) (*models.User, error)
	FirstByRoleAndDepartment(ctx context.Context, role models.Role, department string) (*models.User, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// GrantRole inserts a role-set row, ignoring duplicates.
func (r *userRepository) GrantRole(ctx context.Context, userID uint, role models.Role) error {
	row := models.UserRole{UserID: userID, Role: role}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Preload("Roles").
		Order("id").
		Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ListByRoles returns users carrying any of the given roles (role set or
// legacy column), optionally narrowed to a department.
func (r *userRepository) ListByRoles(ctx context.Context, roles []models.Role, department string) ([]models.User, error) {
	var users []models.User
	q := r.db.WithContext(ctx).
		Preload("Roles").
		Where("id IN (?)", r.idsWithRoles(ctx, roles)).
		Order("name")
	if department != "" {
		q = q.Where("department = ?", department)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) FirstByRole(ctx context.Context, role models.Role) (*models.User, error) {
	return r.firstWithRole(ctx, role, "")
}

func (r *userRepository) FirstByRoleAndDepartment(ctx context.Context, role models.Role, department string) (*models.User, error) {
	return r.firstWithRole(ctx, role, department)
}

// firstWithRole picks the lowest-id user carrying the role so resolution is
// deterministic across calls.
func (r *userRepository) firstWithRole(ctx context.Context, role models.Role, department string) (*models.User, error) {
	var user models.User
	q := r.db.WithContext(ctx).
		Preload("Roles").
		Where("id IN (?)", r.idsWithRoles(ctx, []models.Role{role})).
		Order("id")
	if department != "" {
		q = q.Where("department = ?", department)
	}
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN (?)", r.idsWithRoles(ctx, []models.Role{role})).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// idsWithRoles builds a subquery of user ids carrying any of the roles,
// honoring the legacy role column for accounts without a role set.
func (r *userRepository) idsWithRoles(ctx context.Context, roles []models.Role) *gorm.DB {
	fromSet := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Select("user_id").
		Where("role IN ?", roles)
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id").
		Where("id IN (?)", fromSet).
		Or("role IN ? AND id NOT IN (?)", roles,
			r.db.WithContext(ctx).Model(&models.UserRole{}).Select("user_id"))
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
