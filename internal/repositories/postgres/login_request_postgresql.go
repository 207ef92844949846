package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

var loginRequestSortColumns = map[string]bool{
	"created_at":   true,
	"processed_at": true,
	"id":           true,
	"username":     true,
	"status":       true,
}

type loginRequestPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewLoginRequestPostgreSQL(db *gorm.DB) repositories.LoginRequestRepository {
	return &loginRequestPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *loginRequestPostgreSQL) Create(ctx context.Context, tx *gorm.DB, req *models.LoginRequest) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(req).Error; err != nil {
		return handleDBError(err, "create login request")
	}
	return nil
}

func (r *loginRequestPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.LoginRequest, error) {
	db := r.helpers.getDB(tx)
	var req models.LoginRequest

	if err := db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, handleDBError(err, "get login request by id")
	}

	return &req, nil
}

func (r *loginRequestPostgreSQL) GetLatestByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.LoginRequest, error) {
	db := r.helpers.getDB(tx)
	var req models.LoginRequest

	err := db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC").
		Order("id DESC").
		Take(&req).Error
	if err != nil {
		return nil, handleDBError(err, "get latest login request")
	}

	return &req, nil
}

func (r *loginRequestPostgreSQL) ApplyDecision(ctx context.Context, tx *gorm.DB, id uint, from models.RequestStatus, update repositories.RequestUpdate) (bool, error) {
	db := r.helpers.getDB(tx)

	columns := map[string]interface{}{
		"status":       update.Status,
		"message":      update.Message,
		"processed_at": update.ProcessedAt,
	}
	// a code the student attached after our read must survive
	if update.FillCode != nil {
		columns["verification_code"] = gorm.Expr("COALESCE(NULLIF(verification_code, ''), ?)", *update.FillCode)
	}

	result := db.WithContext(ctx).
		Model(&models.LoginRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(columns)
	if result.Error != nil {
		return false, handleDBError(result.Error, "apply login request decision")
	}

	return result.RowsAffected > 0, nil
}

func (r *loginRequestPostgreSQL) SetVerificationCode(ctx context.Context, tx *gorm.DB, id uint, code string) error {
	db := r.helpers.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.LoginRequest{}).
		Where("id = ?", id).
		Update("verification_code", code)
	if result.Error != nil {
		return handleDBError(result.Error, "set verification code")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "set verification code")
	}

	return nil
}

func (r *loginRequestPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.LoginRequestFilters) ([]*models.LoginRequest, int64, error) {
	db := r.helpers.getDB(tx)
	var requests []*models.LoginRequest
	var total int64

	query := db.WithContext(ctx).Model(&models.LoginRequest{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Username != nil {
		query = query.Where("username = ?", *filters.Username)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count login requests")
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.ListFilters, loginRequestSortColumns, "created_at", "DESC")

	if err := query.Find(&requests).Error; err != nil {
		return nil, 0, handleDBError(err, "list login requests")
	}

	return requests, total, nil
}
