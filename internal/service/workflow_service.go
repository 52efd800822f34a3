package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"paperflow/internal/middleware"
	"paperflow/internal/models"
	"paperflow/internal/notifications"
	"paperflow/internal/observability"
	"paperflow/internal/repository"
	"paperflow/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

// WorkflowService is the routing engine: it owns every transition of the
// document state machine, the holder checks and the signing hook.
type WorkflowService struct {
	docRepo   repository.DocumentRepository
	userRepo  repository.UserRepository
	directory *DirectoryService
	signer    Signer
	artifacts storage.ArtifactStore
	notifier  *notifications.Notifier
	now       func() time.Time
}

func NewWorkflowService(
	docRepo repository.DocumentRepository,
	userRepo repository.UserRepository,
	directory *DirectoryService,
	signer Signer,
	artifacts storage.ArtifactStore,
	notifier *notifications.Notifier,
) *WorkflowService {
	return &WorkflowService{
		docRepo:   docRepo,
		userRepo:  userRepo,
		directory: directory,
		signer:    signer,
		artifacts: artifacts,
		notifier:  notifier,
		now:       time.Now,
	}
}

// forwardRule describes one legal edge of the state machine.
type forwardRule struct {
	// expected statuses the document must be in for the edge to fire
	expected []models.DocumentStatus
	// holders whose slot authorizes the actor
	holders []models.Stage
	// requireExplicit forbids role resolution: the caller must name a target
	requireExplicit bool
	// departmentPref resolves within the student's department first
	departmentPref bool
}

var forwardRules = map[models.Stage]map[models.Stage]forwardRule{
	models.StageMentor: {
		// The mentor names the HOD; there is no directory fallback on
		// this edge.
		models.StageHod: {
			expected:        []models.DocumentStatus{models.StatusApprovedByMentor},
			holders:         []models.Stage{models.StageMentor},
			requireExplicit: true,
		},
	},
	models.StageHod: {
		models.StageDean: {
			expected:       []models.DocumentStatus{models.StatusApprovedByHod},
			holders:        []models.Stage{models.StageHod},
			departmentPref: true,
		},
	},
	models.StageDean: {
		// A dean may hand off to a peer dean before acting, so this edge
		// fires from the forwarded status as well as the approved one.
		models.StageDean: {
			expected:        []models.DocumentStatus{models.StatusForwardedToDean, models.StatusApprovedByDean},
			holders:         []models.Stage{models.StageDean},
			requireExplicit: true,
		},
		models.StageDeanAcademics: {
			expected: []models.DocumentStatus{models.StatusApprovedByDean},
			holders:  []models.Stage{models.StageDean},
		},
		models.StageIndustryRelations: {
			expected: []models.DocumentStatus{models.StatusApprovedByDean},
			holders:  []models.Stage{models.StageDean},
		},
		models.StageRnd: {
			expected: []models.DocumentStatus{models.StatusApprovedByDean},
			holders:  []models.Stage{models.StageDean},
		},
		models.StageCoe: {
			expected: []models.DocumentStatus{models.StatusApprovedByDean},
			holders:  []models.Stage{models.StageDean},
		},
	},
	models.StageDeanAcademics: {
		models.StageRegistrar: {
			expected: []models.DocumentStatus{models.StatusApprovedByDeanAcademics},
			holders:  []models.Stage{models.StageDeanAcademics},
		},
		models.StageExamCell: examCellAdmission,
	},
	models.StageCoe: {
		models.StageExamCell: examCellAdmission,
	},
	models.StageIndustryRelations: {
		// Routing out of industry relations picks any holder of the
		// target role; the office serves every department.
		models.StageDean: {
			expected: []models.DocumentStatus{models.StatusApprovedByIndustryRelations},
			holders:  []models.Stage{models.StageIndustryRelations},
		},
		models.StageDeanAcademics: {
			expected: []models.DocumentStatus{models.StatusApprovedByIndustryRelations},
			holders:  []models.Stage{models.StageIndustryRelations},
		},
		models.StageRnd: {
			expected: []models.DocumentStatus{models.StatusApprovedByIndustryRelations},
			holders:  []models.Stage{models.StageIndustryRelations},
		},
		models.StageHod: {
			expected: []models.DocumentStatus{models.StatusApprovedByIndustryRelations},
			holders:  []models.Stage{models.StageIndustryRelations},
		},
	},
}

// examCellAdmission is the dual-predecessor edge: either the CoE or the
// Dean-Academics holder may admit a document to the exam cell.
var examCellAdmission = forwardRule{
	expected: []models.DocumentStatus{models.StatusApprovedByDeanAcademics, models.StatusApprovedByCoe},
	holders:  []models.Stage{models.StageDeanAcademics, models.StageCoe},
}

// UploadDocumentInput carries a new artifact submitted by a student.
type UploadDocumentInput struct {
	StudentID   uint
	FileName    string
	FileType    string
	Description string
	Data        []byte
}

// Upload stores the artifact and creates the document in DRAFT with no
// holder slots occupied.
func (s *WorkflowService) Upload(ctx context.Context, in UploadDocumentInput) (*models.Document, error) {
	span, ctx := observability.NewSpan(ctx, "workflow.Upload")
	defer span.End()

	if strings.TrimSpace(in.FileName) == "" {
		return nil, models.NewValidationError("File name is required")
	}
	if len(in.Data) == 0 {
		return nil, models.NewValidationError("File is empty")
	}
	if len(in.Description) > 1000 {
		return nil, models.NewValidationError("Description too long (max 1000 characters)")
	}

	handle, err := s.artifacts.Put(ctx, in.Data, in.FileType)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	doc := &models.Document{
		FileName:    in.FileName,
		FileType:    in.FileType,
		FileSize:    int64(len(in.Data)),
		Description: in.Description,
		ArtifactID:  handle,
		StudentID:   in.StudentID,
		Status:      models.StatusDraft,
		UploadedAt:  s.now().UTC(),
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		_ = s.artifacts.Delete(ctx, handle)
		span.SetError(err)
		return nil, err
	}

	observability.DocumentUploads.Inc()
	span.AddAttributes(attribute.Int("document.id", int(doc.ID)))
	return doc, nil
}

// ForwardToMentor is the student's initial hand-off out of DRAFT. The mentor
// is always named explicitly; any registered user may be picked.
func (s *WorkflowService) ForwardToMentor(ctx context.Context, documentID, studentID, mentorID uint) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.StudentID != studentID {
		return nil, models.NewForbiddenError("Only the owning student can forward this document")
	}
	if err := requireStatus(doc, models.StatusDraft); err != nil {
		return nil, err
	}

	mentor, err := s.userRepo.GetByID(ctx, mentorID)
	if err != nil {
		return nil, err
	}

	return s.applyForward(ctx, doc, models.StageMentor, mentor)
}

// ForwardInput names the edge a stage holder wants to traverse.
type ForwardInput struct {
	DocumentID uint
	ActorID    uint
	From       models.Stage
	To         models.Stage
	TargetID   *uint
}

// Forward moves a document along one edge of the state machine. The actor
// must occupy an authorizing holder slot and the document must sit in a
// status the edge permits.
func (s *WorkflowService) Forward(ctx context.Context, in ForwardInput) (*models.Document, error) {
	span, ctx := observability.NewSpan(ctx, "workflow.Forward")
	defer span.End()
	span.AddAttributes(
		attribute.String("workflow.from", string(in.From)),
		attribute.String("workflow.to", string(in.To)),
	)

	rule, ok := forwardRules[in.From][in.To]
	if !ok {
		return nil, models.NewValidationError(
			fmt.Sprintf("Documents cannot be forwarded from %s to %s", in.From, in.To))
	}

	doc, err := s.docRepo.GetByID(ctx, in.DocumentID)
	if err != nil {
		return nil, err
	}
	ctx = middleware.WithDocument(ctx, doc.ID)
	if err := requireStatus(doc, rule.expected...); err != nil {
		return nil, err
	}
	if err := requireHolder(doc, in.ActorID, rule.holders...); err != nil {
		return nil, err
	}

	// Department preference keys on the owning student, not the actor: a
	// document follows its student's department even when a cross-department
	// holder forwards it.
	department := ""
	if rule.departmentPref && doc.Student != nil {
		department = doc.Student.Department
	}
	target, err := s.resolveTarget(ctx, in.To.Role(), in.TargetID, department, rule.requireExplicit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return s.applyForward(ctx, doc, in.To, target)
}

// Approve runs the signing hook and marks the stage approved. The document
// keeps its current holder slots; the stage holder is expected to forward it
// onward (or the chain ends here for terminal stages).
func (s *WorkflowService) Approve(ctx context.Context, stage models.Stage, documentID, actorID uint) (*models.Document, error) {
	span, ctx := observability.NewSpan(ctx, "workflow.Approve")
	defer span.End()
	span.AddAttributes(attribute.String("workflow.stage", string(stage)))

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	ctx = middleware.WithDocument(ctx, doc.ID)
	if err := requireStatus(doc, stage.ForwardedStatus()); err != nil {
		return nil, err
	}
	if err := requireHolder(doc, actorID, stage); err != nil {
		return nil, err
	}

	approver, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	data, err := s.artifacts.Get(ctx, doc.ArtifactID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	signed, err := s.signer.Sign(ctx, doc, data, approver, stage)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	oldHandle, newHandle := "", ""
	if !bytes.Equal(signed, data) {
		newHandle, err = s.artifacts.Put(ctx, signed, doc.FileType)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		oldHandle = doc.ArtifactID
		doc.ArtifactID = newHandle
		doc.FileSize = int64(len(signed))
	}

	doc.Status = stage.ApprovedStatus()
	doc.StampAction(stage, s.now().UTC())

	if err := s.persistTransition(ctx, doc, stage, "approve"); err != nil {
		if newHandle != "" {
			_ = s.artifacts.Delete(ctx, newHandle)
		}
		return nil, err
	}
	if oldHandle != "" {
		// Best effort: the document already points at the signed bytes.
		_ = s.artifacts.Delete(ctx, oldHandle)
	}

	s.notify(ctx, doc.StudentID, "document_approved", doc)
	return doc, nil
}

// Reject marks the stage rejected with a mandatory reason. Rejection is
// terminal: no edge leaves a REJECTED_BY_* status.
func (s *WorkflowService) Reject(ctx context.Context, stage models.Stage, documentID, actorID uint, reason string) (*models.Document, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("Rejection reason is required")
	}
	if len(reason) > 1000 {
		return nil, models.NewValidationError("Rejection reason too long (max 1000 characters)")
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	ctx = middleware.WithDocument(ctx, doc.ID)
	if err := requireStatus(doc, stage.ForwardedStatus()); err != nil {
		return nil, err
	}
	if err := requireHolder(doc, actorID, stage); err != nil {
		return nil, err
	}

	doc.Status = stage.RejectedStatus()
	doc.RejectionReason = reason
	doc.StampAction(stage, s.now().UTC())

	if err := s.persistTransition(ctx, doc, stage, "reject"); err != nil {
		return nil, err
	}

	s.notify(ctx, doc.StudentID, "document_rejected", doc)
	return doc, nil
}

// DeleteDraft removes a document that never left the student's hands.
func (s *WorkflowService) DeleteDraft(ctx context.Context, documentID, studentID uint) error {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.StudentID != studentID {
		return models.NewForbiddenError("Only the owning student can delete this document")
	}
	if err := requireStatus(doc, models.StatusDraft); err != nil {
		return err
	}
	if err := s.docRepo.Delete(ctx, documentID); err != nil {
		return err
	}
	_ = s.artifacts.Delete(ctx, doc.ArtifactID)
	return nil
}

// DocumentsForStudent lists everything the student ever uploaded.
func (s *WorkflowService) DocumentsForStudent(ctx context.Context, studentID uint) ([]models.Document, error) {
	return s.docRepo.ListByStudent(ctx, studentID)
}

// PendingForHolder lists documents waiting on the user's desk at the stage.
func (s *WorkflowService) PendingForHolder(ctx context.Context, stage models.Stage, holderID uint, limit, offset int) ([]models.Document, error) {
	pending := stage.ForwardedStatus()
	return s.docRepo.ListByHolder(ctx, stage, holderID, &pending, limit, offset)
}

// AllForHolder lists every document that ever crossed the user's desk at
// the stage, whatever its current status.
func (s *WorkflowService) AllForHolder(ctx context.Context, stage models.Stage, holderID uint, limit, offset int) ([]models.Document, error) {
	return s.docRepo.ListByHolder(ctx, stage, holderID, nil, limit, offset)
}

// Download returns the document and its stored bytes. A nil stage means the
// owning student is asking; otherwise the actor must occupy the stage's
// holder slot.
func (s *WorkflowService) Download(ctx context.Context, documentID, actorID uint, stage *models.Stage) (*models.Document, []byte, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if stage == nil {
		if doc.StudentID != actorID {
			return nil, nil, models.NewForbiddenError("Only the owning student can download this document")
		}
	} else if !doc.HeldBy(*stage, actorID) {
		return nil, nil, models.NewForbiddenError("Document is not on your desk")
	}

	data, err := s.artifacts.Get(ctx, doc.ArtifactID)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

// Statistics summarizes the system for the admin console.
type Statistics struct {
	TotalUsers       int64 `json:"total_users"`
	Students         int64 `json:"students"`
	Hods             int64 `json:"hods"`
	Deans            int64 `json:"deans"`
	TotalDocuments   int64 `json:"total_documents"`
	PendingApprovals int64 `json:"pending_approvals"`
	Rejected         int64 `json:"rejected"`
}

func (s *WorkflowService) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{}
	var err error

	if stats.TotalUsers, err = s.userRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.Students, err = s.userRepo.CountByRole(ctx, models.RoleStudent); err != nil {
		return nil, err
	}
	if stats.Hods, err = s.userRepo.CountByRole(ctx, models.RoleHod); err != nil {
		return nil, err
	}
	if stats.Deans, err = s.userRepo.CountByRole(ctx, models.RoleDean); err != nil {
		return nil, err
	}
	if stats.TotalDocuments, err = s.docRepo.Count(ctx); err != nil {
		return nil, err
	}

	var pending, rejected []models.DocumentStatus
	for _, stage := range models.Stages {
		pending = append(pending, stage.ForwardedStatus())
		rejected = append(rejected, stage.RejectedStatus())
	}
	if stats.PendingApprovals, err = s.docRepo.CountByStatuses(ctx, pending); err != nil {
		return nil, err
	}
	if stats.Rejected, err = s.docRepo.CountByStatuses(ctx, rejected); err != nil {
		return nil, err
	}
	return stats, nil
}

// resolveTarget picks the user receiving a forward: an explicitly named
// target validated against the required role, or directory resolution.
func (s *WorkflowService) resolveTarget(ctx context.Context, role models.Role, targetID *uint, department string, requireExplicit bool) (*models.User, error) {
	if targetID != nil {
		target, err := s.userRepo.GetByID(ctx, *targetID)
		if err != nil {
			return nil, err
		}
		if !target.HasRole(role) {
			return nil, models.NewInvalidTargetError(
				fmt.Sprintf("User %d does not hold the %s role", target.ID, role))
		}
		return target, nil
	}
	if requireExplicit {
		return nil, models.NewValidationError("A target user must be named for this forward")
	}
	return s.directory.ResolveHolder(ctx, role, department)
}

func (s *WorkflowService) applyForward(ctx context.Context, doc *models.Document, to models.Stage, target *models.User) (*models.Document, error) {
	doc.SetHolder(to, target.ID)
	doc.Status = to.ForwardedStatus()
	doc.StampForwarded(to, s.now().UTC())

	if err := s.persistTransition(ctx, doc, to, "forward"); err != nil {
		return nil, err
	}

	s.notify(ctx, target.ID, "document_forwarded", doc)
	return doc, nil
}

func (s *WorkflowService) persistTransition(ctx context.Context, doc *models.Document, stage models.Stage, action string) error {
	if err := s.docRepo.Update(ctx, doc); err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == "CONFLICT" {
			observability.WorkflowConflicts.Inc()
		}
		return err
	}
	observability.WorkflowTransitions.WithLabelValues(string(stage), action).Inc()
	return nil
}

func (s *WorkflowService) notify(ctx context.Context, userID uint, event string, doc *models.Document) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishDocumentEvent(ctx, userID, event, doc); err != nil {
		middleware.Logger.WarnContext(ctx, "document event publish failed",
			slog.String("event", event),
			slog.Uint64("document_id", uint64(doc.ID)),
			slog.String("error", err.Error()),
		)
	}
}

func requireStatus(doc *models.Document, expected ...models.DocumentStatus) error {
	for _, status := range expected {
		if doc.Status == status {
			return nil
		}
	}
	if doc.Status.IsRejected() {
		return models.NewInvalidStateError(
			fmt.Sprintf("Document %d was rejected and cannot move further", doc.ID))
	}
	return models.NewInvalidStateError(
		fmt.Sprintf("Document %d is %s, expected %s", doc.ID, doc.Status, joinStatuses(expected)))
}

func requireHolder(doc *models.Document, actorID uint, stages ...models.Stage) error {
	for _, stage := range stages {
		if doc.HeldBy(stage, actorID) {
			return nil
		}
	}
	return models.NewForbiddenError("Document is not on your desk")
}

func joinStatuses(statuses []models.DocumentStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, " or ")
}
