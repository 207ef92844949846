package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

var verificationCodeSortColumns = map[string]bool{
	"created_at":   true,
	"validated_at": true,
	"id":           true,
	"username":     true,
}

type verificationCodePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewVerificationCodePostgreSQL(db *gorm.DB) repositories.VerificationCodeRepository {
	return &verificationCodePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *verificationCodePostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, username, code string, status models.CodeStatus) (*models.VerificationCode, error) {
	db := r.helpers.getDB(tx)

	vc := &models.VerificationCode{
		Username:         username,
		Code:             code,
		ValidationStatus: status,
	}
	if status != models.CodePending {
		now := time.Now()
		vc.ValidatedAt = &now
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"validation_status", "validated_at"}),
		}).
		Create(vc).Error
	if err != nil {
		return nil, handleDBError(err, "upsert verification code")
	}

	return r.GetByUsernameAndCode(ctx, tx, username, code)
}

func (r *verificationCodePostgreSQL) GetByUsernameAndCode(ctx context.Context, tx *gorm.DB, username, code string) (*models.VerificationCode, error) {
	db := r.helpers.getDB(tx)
	var vc models.VerificationCode

	if err := db.WithContext(ctx).
		Where("username = ? AND code = ?", username, code).
		Take(&vc).Error; err != nil {
		return nil, handleDBError(err, "get verification code")
	}

	return &vc, nil
}

func (r *verificationCodePostgreSQL) GetLatestByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.VerificationCode, error) {
	db := r.helpers.getDB(tx)
	var vc models.VerificationCode

	if err := db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC").
		Order("id DESC").
		Take(&vc).Error; err != nil {
		return nil, handleDBError(err, "get latest verification code")
	}

	return &vc, nil
}

func (r *verificationCodePostgreSQL) GetLatestUnusedForApproved(ctx context.Context, tx *gorm.DB, username string) (*models.VerificationCode, error) {
	db := r.helpers.getDB(tx)
	var vc models.VerificationCode

	err := db.WithContext(ctx).
		Where("username = ? AND used = ?", username, false).
		Where("EXISTS (SELECT 1 FROM login_requests lr WHERE lr.username = verification_codes.username AND lr.status = ?)", models.RequestApproved).
		Order("created_at DESC").
		Order("id DESC").
		Take(&vc).Error
	if err != nil {
		return nil, handleDBError(err, "get latest unused verification code")
	}

	return &vc, nil
}

func (r *verificationCodePostgreSQL) MarkValidated(ctx context.Context, tx *gorm.DB, id uint, status models.CodeStatus, markUsed bool) (bool, error) {
	db := r.helpers.getDB(tx)

	updates := map[string]interface{}{
		"validation_status": status,
		"validated_at":      time.Now(),
	}

	query := db.WithContext(ctx).Model(&models.VerificationCode{}).Where("id = ?", id)
	if markUsed {
		query = query.Where("used = ?", false)
		updates["used"] = true
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return false, handleDBError(result.Error, "mark verification code")
	}

	return result.RowsAffected > 0, nil
}

func (r *verificationCodePostgreSQL) ListByStatus(ctx context.Context, tx *gorm.DB, status models.CodeStatus) ([]*models.VerificationCode, error) {
	db := r.helpers.getDB(tx)
	var codes []*models.VerificationCode

	if err := db.WithContext(ctx).
		Where("validation_status = ?", status).
		Order("created_at ASC").
		Order("id ASC").
		Find(&codes).Error; err != nil {
		return nil, handleDBError(err, "list verification codes by status")
	}

	return codes, nil
}

func (r *verificationCodePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ListFilters) ([]*models.VerificationCode, error) {
	db := r.helpers.getDB(tx)
	var codes []*models.VerificationCode

	query := db.WithContext(ctx).Model(&models.VerificationCode{})
	query = r.helpers.ApplyPaginationAndSort(query, filters, verificationCodeSortColumns, "created_at", "DESC")

	if err := query.Find(&codes).Error; err != nil {
		return nil, handleDBError(err, "list verification codes")
	}

	return codes, nil
}
