// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"paperflow/internal/models"
	"paperflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/user/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"user": user,
		"role": user.EffectiveRole(),
	})
}

// UpdateMyProfile handles PUT /api/user/profile
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Name          string `json:"name"`
		Department    string `json:"department"`
		VtuNumber     string `json:"vtu_number"`
		ContactNumber string `json:"contact_number"`
		YearOfStudy   string `json:"year_of_study"`
		TtsID         string `json:"tts_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:        currentUserID(c),
		Name:          req.Name,
		Department:    req.Department,
		VtuNumber:     req.VtuNumber,
		ContactNumber: req.ContactNumber,
		YearOfStudy:   req.YearOfStudy,
		TtsID:         req.TtsID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateSignature handles PUT/POST /api/user/signature. The image arrives
// either as a multipart "signature" file or as base64 JSON. ?as=hod (or
// role=HOD) stores the HOD variant.
func (s *Server) UpdateSignature(c *fiber.Ctx) error {
	data, err := signatureBytes(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	asHod := c.Query("as") == "hod" ||
		strings.EqualFold(c.Query("role"), "hod") ||
		strings.EqualFold(c.FormValue("role"), "hod")
	user, err := s.userService.UpdateSignature(c.Context(), currentUserID(c), data, asHod)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Signature stored", "user": user})
}

func signatureBytes(c *fiber.Ctx) ([]byte, error) {
	if file, err := c.FormFile("signature"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, errors.New("Signature file could not be read")
		}
		defer func() { _ = f.Close() }()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.New("Signature file could not be read")
		}
		return data, nil
	}

	var req struct {
		Signature string `json:"signature"`
	}
	if err := c.BodyParser(&req); err != nil || req.Signature == "" {
		return nil, errors.New("A signature image is required")
	}
	data, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		return nil, errors.New("Signature must be valid base64")
	}
	return data, nil
}

// GetMyFlags handles GET /api/user/flags. Clients use the evaluated flag
// set to hide features that are off for this account.
func (s *Server) GetMyFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"flags": s.flags.Snapshot(currentUserID(c))})
}
