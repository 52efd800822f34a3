package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"paperflow/internal/config"
	"paperflow/internal/database"
	"paperflow/internal/featureflags"
	"paperflow/internal/models"
	"paperflow/internal/repository"
	"paperflow/internal/service"
	"paperflow/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testStudentPattern = `^[a-z.]*\d{5}@veltech\.edu\.in$`

// newTestServer wires a Server against an in-memory database without the
// Prometheus middleware, which registers global collectors.
func newTestServer(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	cfg := &config.Config{
		JWTSecret:           "test-secret-key-long-enough-for-tests",
		Port:                "0",
		MaxUploadSizeMB:     20,
		StudentEmailPattern: testStudentPattern,
		AdminEmail:          "admin@paperflow.local",
	}

	userRepo := repository.NewUserRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	artifacts := storage.NewArtifactStore(db)
	userService, err := service.NewUserService(userRepo, cfg.StudentEmailPattern)
	require.NoError(t, err)
	directory := service.NewDirectoryService(userRepo)

	s := &Server{
		config:      cfg,
		db:          db,
		flags:       featureflags.NewManager(cfg.FeatureFlags),
		userRepo:    userRepo,
		docRepo:     docRepo,
		artifacts:   artifacts,
		userService: userService,
		directory:   directory,
		workflow: service.NewWorkflowService(
			docRepo, userRepo, directory, service.NewSigningService(), artifacts, nil),
	}

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, db
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

func bearer(t *testing.T, s *Server, user *models.User) string {
	t.Helper()
	token, err := s.generateToken(user.ID, user.EffectiveRole())
	require.NoError(t, err)
	return "Bearer " + token
}

func jsonRequest(t *testing.T, method, target, auth string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func uploadRequest(t *testing.T, auth, fileName, contentType string, data []byte, description string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	if description != "" {
		require.NoError(t, w.WriteField("description", description))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/student/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", auth)
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}
