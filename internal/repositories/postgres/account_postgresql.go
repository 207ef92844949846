package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

// ===== ACCESS GRANTS =====

type accessGrantPostgreSQL struct {
	helpers *SharedHelpers
}

func NewAccessGrantPostgreSQL(db *gorm.DB) repositories.AccessGrantRepository {
	return &accessGrantPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (r *accessGrantPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, username string, granted bool) (*models.AccessGrant, error) {
	db := r.helpers.getDB(tx)

	grant := &models.AccessGrant{Username: username, Granted: granted}
	if granted {
		now := time.Now()
		grant.GrantedAt = &now
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"granted", "granted_at", "updated_at"}),
		}).
		Create(grant).Error
	if err != nil {
		return nil, handleDBError(err, "upsert access grant")
	}

	return r.GetByUsername(ctx, tx, username)
}

func (r *accessGrantPostgreSQL) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.AccessGrant, error) {
	db := r.helpers.getDB(tx)
	var grant models.AccessGrant

	if err := db.WithContext(ctx).Where("username = ?", username).Take(&grant).Error; err != nil {
		return nil, handleDBError(err, "get access grant")
	}

	return &grant, nil
}

// ===== USERS =====

var userSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"id":         true,
	"username":   true,
}

type userPostgreSQL struct {
	helpers *SharedHelpers
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &userPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (r *userPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, username, password string) (*models.User, error) {
	db := r.helpers.getDB(tx)

	user := &models.User{Username: username, Password: password}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"password", "updated_at"}),
		}).
		Create(user).Error
	if err != nil {
		return nil, handleDBError(err, "upsert user")
	}

	return r.GetByUsername(ctx, tx, username)
}

func (r *userPostgreSQL) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	db := r.helpers.getDB(tx)
	var user models.User

	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, handleDBError(err, "get user")
	}

	return &user, nil
}

func (r *userPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ListFilters) ([]*models.User, error) {
	db := r.helpers.getDB(tx)
	var users []*models.User

	query := r.helpers.ApplyPaginationAndSort(db.WithContext(ctx).Model(&models.User{}), filters, userSortColumns, "created_at", "DESC")
	if err := query.Find(&users).Error; err != nil {
		return nil, handleDBError(err, "list users")
	}

	return users, nil
}

// ===== FEATURE FLAGS =====

type featureFlagPostgreSQL struct {
	helpers *SharedHelpers
}

func NewFeatureFlagPostgreSQL(db *gorm.DB) repositories.FeatureFlagRepository {
	return &featureFlagPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (r *featureFlagPostgreSQL) Get(ctx context.Context, tx *gorm.DB, key string) (*models.FeatureFlag, error) {
	db := r.helpers.getDB(tx)
	var flag models.FeatureFlag

	if err := db.WithContext(ctx).Where("key = ?", key).Take(&flag).Error; err != nil {
		return nil, handleDBError(err, "get feature flag")
	}

	return &flag, nil
}

func (r *featureFlagPostgreSQL) Set(ctx context.Context, tx *gorm.DB, key string, enabled bool) (*models.FeatureFlag, error) {
	db := r.helpers.getDB(tx)

	flag := &models.FeatureFlag{Key: key, Enabled: enabled}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
		}).
		Create(flag).Error
	if err != nil {
		return nil, handleDBError(err, "set feature flag")
	}

	return r.Get(ctx, tx, key)
}

func (r *featureFlagPostgreSQL) List(ctx context.Context, tx *gorm.DB) ([]*models.FeatureFlag, error) {
	db := r.helpers.getDB(tx)
	var flags []*models.FeatureFlag

	if err := db.WithContext(ctx).Order("key ASC").Find(&flags).Error; err != nil {
		return nil, handleDBError(err, "list feature flags")
	}

	return flags, nil
}
