// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"io"
	"net/url"

	"paperflow/internal/models"
	"paperflow/internal/service"
	"paperflow/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// UploadDocument handles POST /api/student/upload with a multipart "file"
// part and an optional "description" field.
func (s *Server) UploadDocument(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A file is required"))
	}

	if err := validation.ValidateUploadFileName(fileHeader.Filename); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	maxBytes := int64(s.config.MaxUploadSizeMB) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
			models.NewValidationError("File exceeds the upload size limit"))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read the uploaded file"))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	doc, err := s.workflow.Upload(c.Context(), service.UploadDocumentInput{
		StudentID:   currentUserID(c),
		FileName:    fileHeader.Filename,
		FileType:    fileHeader.Header.Get("Content-Type"),
		Description: c.FormValue("description"),
		Data:        data,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

// GetMyDocuments handles GET /api/student/documents
func (s *Server) GetMyDocuments(c *fiber.Ctx) error {
	docs, err := s.workflow.DocumentsForStudent(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"documents": docs, "count": len(docs)})
}

// GetMentors handles GET /api/student/mentors, narrowed to the student's
// department when it has staff.
func (s *Server) GetMentors(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	mentors, err := s.directory.ListMentors(c.Context(), user.Department)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"mentors": mentors, "count": len(mentors)})
}

// ForwardToMentor handles POST /api/student/forward/:documentId
func (s *Server) ForwardToMentor(c *fiber.Ctx) error {
	documentID, err := s.parseID(c, "documentId")
	if err != nil {
		return nil
	}

	var req struct {
		MentorID uint `json:"mentor_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.MentorID == 0 {
		if q := c.QueryInt("mentorId", 0); q > 0 {
			req.MentorID = uint(q)
		}
	}
	if req.MentorID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("mentor_id is required"))
	}

	doc, err := s.workflow.ForwardToMentor(c.Context(), documentID, currentUserID(c), req.MentorID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(doc)
}

// DownloadMyDocument handles GET /api/student/document/:documentId/download
func (s *Server) DownloadMyDocument(c *fiber.Ctx) error {
	documentID, err := s.parseID(c, "documentId")
	if err != nil {
		return nil
	}

	doc, data, err := s.workflow.Download(c.Context(), documentID, currentUserID(c), nil)
	if err != nil {
		return respondServiceError(c, err)
	}
	return sendArtifact(c, doc, data)
}

// DeleteMyDocument handles DELETE /api/student/document/:documentId
func (s *Server) DeleteMyDocument(c *fiber.Ctx) error {
	documentID, err := s.parseID(c, "documentId")
	if err != nil {
		return nil
	}

	if err := s.workflow.DeleteDraft(c.Context(), documentID, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Document deleted"})
}

// sendArtifact streams stored bytes back with download headers.
func sendArtifact(c *fiber.Ctx, doc *models.Document, data []byte) error {
	contentType := doc.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition,
		`attachment; filename="`+url.PathEscape(doc.FileName)+`"`)
	return c.Send(data)
}
