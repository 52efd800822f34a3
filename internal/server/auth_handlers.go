// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"fmt"
	"strconv"
	"time"

	"paperflow/internal/models"
	"paperflow/internal/service"
	"paperflow/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Login handles POST /api/auth/login. The frontend verifies the Google
// identity and posts the asserted profile; first-time logins are classified
// by email shape.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email          string `json:"email"`
		Name           string `json:"name"`
		GoogleID       string `json:"google_id"`
		ProfilePicture string `json:"profile_picture"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Email == "" || req.Name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and name are required"))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	user, err := s.userService.Login(c.Context(), service.LoginInput{
		Email:          req.Email,
		Name:           req.Name,
		GoogleID:       req.GoogleID,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.generateToken(user.ID, user.EffectiveRole())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
		"role":  user.EffectiveRole(),
	})
}

// AdminLogin handles POST /api/auth/admin-login with the configured admin
// credential pair.
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if s.config.AdminPasswordHash == "" || req.Email != s.config.AdminEmail {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword(
		[]byte(s.config.AdminPasswordHash), []byte(req.Password)); err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	admin, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return respondServiceError(c, err)
	}
	if admin == nil {
		admin = &models.User{Email: req.Email, Name: "Administrator", LegacyRole: models.RoleAdmin}
		admin.GrantRole(models.RoleAdmin)
		if err := s.userRepo.Create(c.Context(), admin); err != nil {
			return respondServiceError(c, err)
		}
	}

	token, err := s.generateToken(admin.ID, models.RoleAdmin)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  admin,
		"role":  models.RoleAdmin,
	})
}

// Logout handles POST /api/auth/logout by blacklisting the token's jti until
// its natural expiry.
func (s *Server) Logout(c *fiber.Ctx) error {
	if s.redis == nil {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}

	authHeader := c.Get("Authorization")
	tokenString := ""
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		tokenString = authHeader[7:]
	}
	if tokenString == "" {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}
	jti, _ := claims["jti"].(string)
	exp, _ := claims["exp"].(float64)
	if jti != "" {
		ttl := time.Until(time.Unix(int64(exp), 0))
		if ttl > 0 {
			s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl)
		}
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// generateToken creates a JWT token for the given user ID and role
func (s *Server) generateToken(userID uint, role models.Role) (string, error) {
	// Validate secret exists
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := nowUTC()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10), // Subject (user ID as string)
		"role": string(role),                           // Effective role (cached in token)
		"iss":  "paperflow-api",                        // Issuer
		"aud":  "paperflow-client",                     // Audience
		"exp":  now.Add(time.Hour * 24 * 7).Unix(),     // Expiration (7 days)
		"iat":  now.Unix(),                             // Issued at
		"nbf":  now.Unix(),                             // Not before
		"jti":  s.generateJTI(),                        // JWT ID (unique identifier)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
