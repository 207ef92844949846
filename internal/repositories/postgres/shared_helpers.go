package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

// PostgreSQL error codes we translate
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

func (h *SharedHelpers) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return h.db
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection.
// allowed is the column whitelist; the id column is always appended as a
// tie-break so rows with equal timestamps keep a stable order.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, filters repositories.ListFilters, allowed map[string]bool, defaultSort, defaultOrder string) *gorm.DB {
	sortBy := filters.SortBy
	if sortBy == "" || !allowed[sortBy] {
		sortBy = defaultSort
	}

	sortOrder := filters.SortOrder
	switch sortOrder {
	case "asc", "ASC":
		sortOrder = "ASC"
	case "desc", "DESC":
		sortOrder = "DESC"
	default:
		sortOrder = defaultOrder
	}

	query = query.Order(sortBy + " " + sortOrder)
	if sortBy != "id" {
		query = query.Order("id " + sortOrder)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	return query
}

// handleDBError maps driver errors onto repository sentinels
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", operation, repositories.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %s", operation, repositories.ErrDuplicate, pgErr.ConstraintName)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%s: %w", operation, repositories.ErrSerialization)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}
