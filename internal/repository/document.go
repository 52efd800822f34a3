package repository

import (
	"context"
	"errors"
	"fmt"

	"paperflow/internal/cache"
	"paperflow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepository defines persistence operations for documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uint) (*models.Document, error)
	// Update persists the document through an optimistic version check: the
	// row is written only if its stored version still matches doc.Version,
	// and doc.Version is bumped on success. A lost race returns CONFLICT.
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id uint) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.Document, error)
	// ListByHolder returns documents whose holder slot for the stage is the
	// given user, newest forward first. A nil status returns every document
	// that ever passed through the user's desk at that stage.
	ListByHolder(ctx context.Context, stage models.Stage, userID uint, status *models.DocumentStatus, limit, offset int) ([]models.Document, error)
	CountByStatuses(ctx context.Context, statuses []models.DocumentStatus) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository returns a new DocumentRepository implementation.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).
		Preload(clause.Associations).
		First(&doc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Document", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &doc, nil
}

func (r *documentRepository) Update(ctx context.Context, doc *models.Document) error {
	prev := doc.Version
	doc.Version = prev + 1

	res := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ? AND version = ?", doc.ID, prev).
		Select("*").
		Omit("id", "uploaded_at", "student_id").
		Updates(doc)
	if res.Error != nil {
		doc.Version = prev
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		doc.Version = prev
		return models.NewConflictError("Document was modified concurrently, reload and retry")
	}
	cache.InvalidateDocument(ctx, doc.ID)
	return nil
}

func (r *documentRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Document{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateDocument(ctx, id)
	return nil
}

func (r *documentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.WithContext(ctx).
		Preload(clause.Associations).
		Where("student_id = ?", studentID).
		Order("uploaded_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return docs, nil
}

func (r *documentRepository) ListByHolder(ctx context.Context, stage models.Stage, userID uint, status *models.DocumentStatus, limit, offset int) ([]models.Document, error) {
	var docs []models.Document
	q := r.db.WithContext(ctx).
		Preload(clause.Associations).
		Where(fmt.Sprintf("%s = ?", stage.HolderColumn()), userID).
		Order(fmt.Sprintf("%s DESC", stage.ForwardedAtColumn()))
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&docs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return docs, nil
}

func (r *documentRepository) CountByStatuses(ctx context.Context, statuses []models.DocumentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("status IN ?", statuses).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *documentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Document{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
