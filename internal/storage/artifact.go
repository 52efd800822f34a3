// Package storage implements the blob store backing document artifacts.
package storage

import (
	"context"
	"errors"

	"paperflow/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArtifactStore persists opaque byte blobs addressed by UUID handles.
// Document rows carry the handle; approval swaps it for the signed bytes.
type ArtifactStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

type artifactStore struct {
	db *gorm.DB
}

// NewArtifactStore returns an ArtifactStore backed by the artifacts table.
func NewArtifactStore(db *gorm.DB) ArtifactStore {
	return &artifactStore{db: db}
}

func (s *artifactStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidationError("Artifact data must not be empty")
	}
	artifact := models.Artifact{
		ID:          uuid.NewString(),
		ContentType: contentType,
		Data:        data,
	}
	if err := s.db.WithContext(ctx).Create(&artifact).Error; err != nil {
		return "", models.NewStorageError(err)
	}
	return artifact.ID, nil
}

func (s *artifactStore) Get(ctx context.Context, id string) ([]byte, error) {
	var artifact models.Artifact
	if err := s.db.WithContext(ctx).First(&artifact, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Artifact", id)
		}
		return nil, models.NewStorageError(err)
	}
	return artifact.Data, nil
}

func (s *artifactStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Artifact{}, "id = ?", id).Error; err != nil {
		return models.NewStorageError(err)
	}
	return nil
}
