// Package repository provides data access interfaces and implementations
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vaultblockmagic/vault/internal/models"
)

// OperationRepository defines the interface for the operation journal
type OperationRepository interface {
	Create(ctx context.Context, op *models.VaultOperation) error
	GetByID(ctx context.Context, id string) (*models.VaultOperation, error)
	UpdateState(ctx context.Context, id, state string) error
	MarkApprovalSubmitted(ctx context.Context, id, approvalTxHash string) error
	MarkSubmitted(ctx context.Context, id, txHash string) error
	MarkFailed(ctx context.Context, id, reason string) error

	FindByWallet(ctx context.Context, wallet string, limit int) ([]*models.VaultOperation, error)
	// FindStranded returns runs whose approval confirmed but whose main call
	// never did, so an operator can resume or reconcile them.
	FindStranded(ctx context.Context, olderThan time.Duration) ([]*models.VaultOperation, error)
}

type operationRepository struct {
	db *gorm.DB
}

// NewOperationRepository creates a new OperationRepository instance
func NewOperationRepository(db *gorm.DB) OperationRepository {
	return &operationRepository{db: db}
}

func (r *operationRepository) Create(ctx context.Context, op *models.VaultOperation) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *operationRepository) GetByID(ctx context.Context, id string) (*models.VaultOperation, error) {
	var op models.VaultOperation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&op).Error
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *operationRepository) UpdateState(ctx context.Context, id, state string) error {
	return r.db.WithContext(ctx).
		Model(&models.VaultOperation{}).
		Where("id = ?", id).
		Update("state", state).Error
}

func (r *operationRepository) MarkApprovalSubmitted(ctx context.Context, id, approvalTxHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.VaultOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":            models.StateNeedsApproval,
			"approval_tx_hash": approvalTxHash,
		}).Error
}

func (r *operationRepository) MarkSubmitted(ctx context.Context, id, txHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.VaultOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":   models.StateSubmitted,
			"tx_hash": txHash,
		}).Error
}

func (r *operationRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.VaultOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state": models.StateFailed,
			"error": reason,
		}).Error
}

func (r *operationRepository) FindByWallet(ctx context.Context, wallet string, limit int) ([]*models.VaultOperation, error) {
	if limit <= 0 {
		limit = 50
	}
	var ops []*models.VaultOperation
	err := r.db.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("created_at DESC").
		Limit(limit).
		Find(&ops).Error
	return ops, err
}

func (r *operationRepository) FindStranded(ctx context.Context, olderThan time.Duration) ([]*models.VaultOperation, error) {
	cutoff := time.Now().Add(-olderThan)
	var ops []*models.VaultOperation
	err := r.db.WithContext(ctx).
		Where("state = ? AND updated_at < ?", models.StateApproved, cutoff).
		Order("updated_at ASC").
		Find(&ops).Error
	return ops, err
}
