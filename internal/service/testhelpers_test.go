package service

import (
	"context"
	"testing"
	"time"

	"paperflow/internal/database"
	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubSigner appends a marker so approvals visibly swap the stored artifact.
// Set fn to override the behavior per test.
type stubSigner struct {
	fn func(ctx context.Context, doc *models.Document, data []byte, approver *models.User, stage models.Stage) ([]byte, error)
}

func (s *stubSigner) Sign(ctx context.Context, doc *models.Document, data []byte, approver *models.User, stage models.Stage) ([]byte, error) {
	if s.fn != nil {
		return s.fn(ctx, doc, data, approver, stage)
	}
	out := append([]byte{}, data...)
	return append(out, []byte("|signed:"+string(stage))...), nil
}

type workflowEnv struct {
	db        *gorm.DB
	users     repository.UserRepository
	docs      repository.DocumentRepository
	artifacts storage.ArtifactStore
	signer    *stubSigner
	workflow  *WorkflowService
}

func newWorkflowEnv(t *testing.T) *workflowEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	env := &workflowEnv{
		db:        db,
		users:     repository.NewUserRepository(db),
		docs:      repository.NewDocumentRepository(db),
		artifacts: storage.NewArtifactStore(db),
		signer:    &stubSigner{},
	}
	env.workflow = NewWorkflowService(
		env.docs, env.users, NewDirectoryService(env.users),
		env.signer, env.artifacts, nil,
	)
	env.workflow.now = func() time.Time { return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) }
	return env
}

func (e *workflowEnv) seedUser(t *testing.T, name, email, department string, roles ...models.Role) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, Department: department}
	for _, r := range roles {
		u.GrantRole(r)
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *workflowEnv) upload(t *testing.T, studentID uint, data []byte) *models.Document {
	t.Helper()
	doc, err := e.workflow.Upload(context.Background(), UploadDocumentInput{
		StudentID: studentID,
		FileName:  "internship-report.pdf",
		FileType:  "application/pdf",
		Data:      data,
	})
	require.NoError(t, err)
	return doc
}

func requireAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, "unexpected error code: %v", err)
}
