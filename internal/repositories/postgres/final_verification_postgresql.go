package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

type finalVerificationPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewFinalVerificationPostgreSQL(db *gorm.DB) repositories.FinalVerificationRepository {
	return &finalVerificationPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *finalVerificationPostgreSQL) Create(ctx context.Context, tx *gorm.DB, fv *models.FinalVerification) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(fv).Error; err != nil {
		return handleDBError(err, "create final verification")
	}
	return nil
}

func (r *finalVerificationPostgreSQL) GetLatestByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.FinalVerification, error) {
	db := r.helpers.getDB(tx)
	var fv models.FinalVerification

	if err := db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC").
		Order("id DESC").
		Take(&fv).Error; err != nil {
		return nil, handleDBError(err, "get latest final verification")
	}

	return &fv, nil
}

func (r *finalVerificationPostgreSQL) DecidePending(ctx context.Context, tx *gorm.DB, username string, status models.FinalStatus) (int64, error) {
	db := r.helpers.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.FinalVerification{}).
		Where("username = ? AND status = ?", username, models.FinalPending).
		Updates(map[string]interface{}{
			"status":       status,
			"processed_at": time.Now(),
		})
	if result.Error != nil {
		return 0, handleDBError(result.Error, "decide final verification")
	}

	return result.RowsAffected, nil
}

func (r *finalVerificationPostgreSQL) List(ctx context.Context, tx *gorm.DB, status *models.FinalStatus) ([]*models.FinalVerification, error) {
	db := r.helpers.getDB(tx)
	var rows []*models.FinalVerification

	query := db.WithContext(ctx).Model(&models.FinalVerification{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, handleDBError(err, "list final verifications")
	}

	return rows, nil
}
