package repository

import (
	"context"
	"fmt"

	"github.com/glyphworks/ocr-server/internal/db/models"
	"github.com/uptrace/bun"
)

type IAPIKeyRepository interface {
	Repository[models.APIKey]
	WithTx(tx *bun.Tx) IAPIKeyRepository
	WithDB(db *bun.DB) IAPIKeyRepository
	GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	RevokeByHash(ctx context.Context, keyHash string) error
	List(ctx context.Context) ([]models.APIKey, error)
}

type APIKeyRepository struct {
	db bun.IDB
}

func NewAPIKeyRepository(db *bun.DB) IAPIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, apikey *models.APIKey) (*models.APIKey, error) {
	if apikey == nil {
		return nil, fmt.Errorf("apikey model is nil")
	}

	if err := r.db.NewInsert().Model(apikey).Returning("*").Scan(ctx); err != nil {
		return nil, err
	}

	return apikey, nil
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	var apikey models.APIKey
	if err := r.db.NewSelect().Model(&apikey).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}

	return &apikey, nil
}

// GetByHash looks an API key up by the sha3-256 digest of its raw value.
func (r *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var apikey models.APIKey
	if err := r.db.NewSelect().Model(&apikey).Where("key_hash = ?", keyHash).Scan(ctx); err != nil {
		return nil, err
	}

	return &apikey, nil
}

func (r *APIKeyRepository) UpdateByID(ctx context.Context, id string, apikey *models.APIKey) (*models.APIKey, error) {
	if apikey == nil {
		return nil, fmt.Errorf("apikey model is nil")
	}

	if err := r.db.NewUpdate().Model(apikey).Where("id = ?", id).Returning("*").Scan(ctx); err != nil {
		return nil, err
	}

	return apikey, nil
}

func (r *APIKeyRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.NewDelete().Model(&models.APIKey{}).Where("id = ?", id).Exec(ctx)
	return err
}

// RevokeByHash is a soft delete. Revoked keys keep their row so the mask
// stays listable.
func (r *APIKeyRepository) RevokeByHash(ctx context.Context, keyHash string) error {
	_, err := r.db.NewUpdate().Model(&models.APIKey{}).Where("key_hash = ?", keyHash).Set("is_revoked = ?", true).Exec(ctx)
	return err
}

func (r *APIKeyRepository) List(ctx context.Context) ([]models.APIKey, error) {
	var apikeys []models.APIKey
	if err := r.db.NewSelect().Model(&apikeys).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}

	return apikeys, nil
}

func (r *APIKeyRepository) WithTx(tx *bun.Tx) IAPIKeyRepository {
	return &APIKeyRepository{db: tx}
}

func (r *APIKeyRepository) WithDB(db *bun.DB) IAPIKeyRepository {
	return &APIKeyRepository{db: db}
}
