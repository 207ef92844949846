package casdoor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/login-approval-service/internal/cache"
	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// Enabled reports whether enough is configured to talk to Casdoor
func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != "" && c.ClientID != ""
}

// NewClient builds the SDK client shared by the identity repository and
// the auth middleware.
func (c CasdoorConfig) NewClient() *casdoorsdk.Client {
	return casdoorsdk.NewClient(
		c.Endpoint,
		c.ClientID,
		c.ClientSecret,
		c.Certificate,
		c.OrganizationName,
		c.ApplicationName,
	)
}

type IdentityCasdoor struct {
	client *casdoorsdk.Client
	cache  *cache.CacheHelper
	ttl    time.Duration
}

func NewIdentityCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.IdentityRepository {
	return &IdentityCasdoor{
		client: config.NewClient(),
		cache:  cache.NewCacheManager(redisClient).Identity,
		ttl:    cache.IdentityCacheConfig.TTL,
	}
}

// ===== CONVERSION METHODS =====

func toIdentity(casdoorUser *casdoorsdk.User) *models.Identity {
	if casdoorUser == nil {
		return nil
	}

	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	var avatar *string
	if casdoorUser.Avatar != "" {
		avatar = &casdoorUser.Avatar
	}

	return &models.Identity{
		ID:            casdoorUser.Id,
		Name:          casdoorUser.Name,
		DisplayName:   casdoorUser.DisplayName,
		Email:         casdoorUser.Email,
		Role:          RoleFor(casdoorUser),
		AvatarURL:     avatar,
		EmailVerified: casdoorUser.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// RoleFor collapses the Casdoor role list into a single role. Admin wins.
func RoleFor(casdoorUser *casdoorsdk.User) models.UserRole {
	if casdoorUser == nil {
		return models.RoleStudent
	}

	var roles []models.UserRole
	for _, casdoorRole := range casdoorUser.Roles {
		if casdoorRole == nil {
			continue
		}
		mapped := mapRole(casdoorRole.Name)
		if !slices.Contains(roles, mapped) {
			roles = append(roles, mapped)
		}
	}

	if casdoorUser.IsAdmin || slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin
	}
	if slices.Contains(roles, models.RoleProfessor) {
		return models.RoleProfessor
	}
	return models.RoleStudent
}

func mapRole(name string) models.UserRole {
	switch strings.ToLower(name) {
	case "professor", "teacher", "instructor", "reviewer":
		return models.RoleProfessor
	case "admin", "administrator":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}

// ===== READ OPERATIONS =====

// GetByID retrieves an identity by Casdoor user id
func (u *IdentityCasdoor) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	err := u.cache.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &identity, u.ttl, func() (interface{}, error) {
		casdoorUser, err := u.client.GetUserByUserId(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
		}
		if casdoorUser == nil {
			return nil, fmt.Errorf("identity %s: %w", id, repositories.ErrNotFound)
		}
		return toIdentity(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}

	return &identity, nil
}

// GetByName retrieves an identity by its Casdoor login name
func (u *IdentityCasdoor) GetByName(ctx context.Context, name string) (*models.Identity, error) {
	var identity models.Identity
	err := u.cache.CacheOrExecute(ctx, fmt.Sprintf("name:%s", name), &identity, u.ttl, func() (interface{}, error) {
		casdoorUser, err := u.client.GetUser(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
		}
		if casdoorUser == nil {
			return nil, fmt.Errorf("identity %s: %w", name, repositories.ErrNotFound)
		}
		return toIdentity(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}

	return &identity, nil
}

// HasRole checks if an identity has a specific role; admins pass every check
func (u *IdentityCasdoor) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	identity, err := u.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return identity.Role == role || identity.Role == models.RoleAdmin, nil
}

// ===== LIST OPERATIONS =====

// List retrieves a paginated list of identities
func (u *IdentityCasdoor) List(ctx context.Context, filters repositories.IdentityFilters) ([]*models.Identity, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = 10
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	// Casdoor pages are 1-indexed
	page := (filters.Offset / filters.Limit) + 1

	queryMap := make(map[string]string)
	if filters.Query != "" {
		queryMap["field"] = "name"
		queryMap["value"] = filters.Query
	}

	casdoorUsers, count, err := u.client.GetPaginationUsers(page, filters.Limit, queryMap)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get users from Casdoor: %w", err)
	}

	identities := make([]*models.Identity, 0, len(casdoorUsers))
	for _, casdoorUser := range casdoorUsers {
		if identity := toIdentity(casdoorUser); identity != nil {
			identities = append(identities, identity)
		}
	}

	return identities, int64(count), nil
}
