// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"paperflow/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetStatistics handles GET /api/admin/statistics
func (s *Server) GetStatistics(c *fiber.Ctx) error {
	stats, err := s.workflow.Statistics(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}

// GetAllUsers handles GET /api/admin/users
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	users, err := s.userService.ListUsers(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "count": len(users)})
}

// SetUserRole handles POST /api/admin/users/:userId/role and the
// body-addressed alias POST /api/auth/set-role.
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	var req struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil || req.Role == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("role is required"))
	}

	userID := req.UserID
	if c.Params("userId") != "" {
		id, err := s.parseID(c, "userId")
		if err != nil {
			return nil
		}
		userID = id
	}
	if userID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("user_id is required"))
	}

	user, err := s.userService.SetRole(c.Context(), userID, models.Role(req.Role))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// MigrateLegacyRoles handles POST /api/admin/migrate-roles: copies the old
// single-role column into the role set for accounts that predate it.
func (s *Server) MigrateLegacyRoles(c *fiber.Ctx) error {
	migrated, err := s.userService.MigrateLegacyRoles(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"migrated": migrated})
}
