package repository

import (
	"context"
	"fmt"

	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/uptrace/bun"
)

type IDocumentRepository interface {
	Repository[models.Document]
	WithTx(tx *bun.Tx) IDocumentRepository
	WithDB(db *bun.DB) IDocumentRepository
	ListByJobID(ctx context.Context, jobID string) ([]models.Document, error)
}

type DocumentRepository struct {
	db bun.IDB
}

func NewDocumentRepository(db *bun.DB) IDocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("document model is nil")
	}

	if err := r.db.NewInsert().Model(doc).Returning("*").Scan(ctx); err != nil {
		return nil, err
	}

	return doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.NewSelect().Model(&doc).Where("d.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}

	return &doc, nil
}

func (r *DocumentRepository) ListByJobID(ctx context.Context, jobID string) ([]models.Document, error) {
	var docs []models.Document
	if err := r.db.NewSelect().Model(&docs).Where("job_id = ?", jobID).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}

	return docs, nil
}

func (r *DocumentRepository) UpdateByID(ctx context.Context, id string, doc *models.Document) (*models.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("document model is nil")
	}

	if err := r.db.NewUpdate().Model(doc).Where("id = ?", id).Returning("*").Scan(ctx); err != nil {
		return nil, err
	}

	return doc, nil
}

func (r *DocumentRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model(&models.Document{}).Where("id = ?", id).Exec(ctx)
	return err
}

func (r *DocumentRepository) WithTx(tx *bun.Tx) IDocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) WithDB(db *bun.DB) IDocumentRepository {
	return &DocumentRepository{db: db}
}
