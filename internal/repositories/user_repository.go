package repositories

import (
	"context"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
)

// IdentityFilters defines filters for staff identity queries
type IdentityFilters struct {
	Query  string // Search query for name or email
	Limit  int
	Offset int
}

// IdentityRepository resolves authenticated staff members. The service does
// not own this data; it is read from the identity provider.
type IdentityRepository interface {
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	GetByName(ctx context.Context, name string) (*models.Identity, error)
	List(ctx context.Context, filters IdentityFilters) ([]*models.Identity, int64, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}
