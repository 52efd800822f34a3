// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"paperflow/internal/models"
	"paperflow/internal/service"

	"github.com/gofiber/fiber/v2"
)

// StagePending handles GET /api/{stage}/pending-documents: documents waiting
// on the caller's desk.
func (s *Server) StagePending(stage models.Stage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := parsePagination(c, 20)
		docs, err := s.workflow.PendingForHolder(c.Context(), stage, currentUserID(c), p.Limit, p.Offset)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(fiber.Map{"documents": docs, "count": len(docs)})
	}
}

// StageAll handles GET /api/{stage}/all-documents: everything that ever
// crossed the caller's desk at this stage.
func (s *Server) StageAll(stage models.Stage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := parsePagination(c, 20)
		docs, err := s.workflow.AllForHolder(c.Context(), stage, currentUserID(c), p.Limit, p.Offset)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(fiber.Map{"documents": docs, "count": len(docs)})
	}
}

// StageApprove handles POST /api/{stage}/approve/:documentId
func (s *Server) StageApprove(stage models.Stage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		documentID, err := s.parseID(c, "documentId")
		if err != nil {
			return nil
		}

		doc, err := s.workflow.Approve(c.Context(), stage, documentID, currentUserID(c))
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// StageReject handles POST /api/{stage}/reject/:documentId with a mandatory
// reason in the body.
func (s *Server) StageReject(stage models.Stage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		documentID, err := s.parseID(c, "documentId")
		if err != nil {
			return nil
		}

		var req struct {
			Reason          string `json:"reason"`
			RejectionReason string `json:"rejection_reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		if req.Reason == "" {
			req.Reason = req.RejectionReason
		}

		doc, err := s.workflow.Reject(c.Context(), stage, documentID, currentUserID(c), req.Reason)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// StageForward handles POST /api/{from}/forward-to-{to}/:documentId with an
// optional explicit target in the body or query.
func (s *Server) StageForward(from, to models.Stage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		documentID, err := s.parseID(c, "documentId")
		if err != nil {
			return nil
		}

		doc, err := s.workflow.Forward(c.Context(), service.ForwardInput{
			DocumentID: documentID,
			ActorID:    currentUserID(c),
			From:       from,
			To:         to,
			TargetID:   optionalTargetID(c),
		})
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// StageDownload handles GET /api/{stage}/document/:documentId/download
func (s *Server) StageDownload(stage models.Stage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		documentID, err := s.parseID(c, "documentId")
		if err != nil {
			return nil
		}

		doc, data, err := s.workflow.Download(c.Context(), documentID, currentUserID(c), &stage)
		if err != nil {
			return respondServiceError(c, err)
		}
		return sendArtifact(c, doc, data)
	}
}
