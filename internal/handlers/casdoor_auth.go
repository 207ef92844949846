package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories/casdoor"
)

var (
	errInvalidToken    = errors.New("invalid token")
	errMissingIdentity = errors.New("invalid user ID in token")
)

// TokenVerifier turns a bearer token into a staff identity
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// AuthMiddleware authenticates professors on the review routes
type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// NewCasdoorAuthMiddleware validates Casdoor-issued JWTs
func NewCasdoorAuthMiddleware(client *casdoorsdk.Client, identity repositories.IdentityRepository) *AuthMiddleware {
	return NewAuthMiddleware(&casdoorVerifier{client: client, identity: identity})
}

// NewStaticTokenAuthMiddleware accepts one shared token and maps it onto the
// named identity. An empty token rejects every request.
func NewStaticTokenAuthMiddleware(token string, identity repositories.IdentityRepository, name string) *AuthMiddleware {
	return NewAuthMiddleware(&staticTokenVerifier{token: token, identity: identity, name: name})
}

// AuthMiddleware returns a Gin middleware function for bearer authentication
func (am *AuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "authorization header missing",
			})
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid authorization header format",
			})
			return
		}

		identity, err := am.verifier.Verify(c.Request.Context(), tokenParts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": err.Error(),
			})
			return
		}

		c.Set("user_id", identity.ID)
		c.Set("user", identity)
		c.Set("user_role", identity.Role)
		c.Set("user_email", identity.Email)

		c.Next()
	}
}

// RequireRoleMiddleware checks if user has required role. Admin always passes.
func (am *AuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": err.Error(),
			})
			return
		}

		hasRequiredRole := false
		for _, requiredRole := range requiredRoles {
			if role == requiredRole || role == models.RoleAdmin {
				hasRequiredRole = true
				break
			}
		}

		if !hasRequiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
			})
			return
		}

		c.Next()
	}
}

// ===== VERIFIERS =====

type casdoorVerifier struct {
	client   *casdoorsdk.Client
	identity repositories.IdentityRepository
}

func (v *casdoorVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if claims.Id == "" {
		return nil, errMissingIdentity
	}

	// Prefer the provider's current view of the user; the token may carry
	// stale roles.
	if v.identity != nil {
		if identity, err := v.identity.GetByID(ctx, claims.Id); err == nil {
			return identity, nil
		}
	}
	return identityFromClaims(claims), nil
}

func identityFromClaims(claims *casdoorsdk.Claims) *models.Identity {
	now := time.Now()
	avatarURL := claims.User.Avatar
	return &models.Identity{
		ID:            claims.Id,
		Name:          claims.User.Name,
		DisplayName:   claims.User.DisplayName,
		Email:         claims.User.Email,
		Role:          casdoor.RoleFor(&claims.User),
		AvatarURL:     &avatarURL,
		EmailVerified: claims.User.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

type staticTokenVerifier struct {
	token    string
	identity repositories.IdentityRepository
	name     string
}

func (v *staticTokenVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	if v.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(v.token)) != 1 {
		return nil, errInvalidToken
	}
	identity, err := v.identity.GetByName(ctx, v.name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMissingIdentity, err)
	}
	return identity, nil
}

// ===== CONTEXT HELPERS =====

// GetIdentityFromContext extracts the authenticated identity from Gin context
func GetIdentityFromContext(c *gin.Context) (*models.Identity, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	identity, ok := user.(*models.Identity)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return identity, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}

// reviewerName is used for log fields only
func reviewerName(c *gin.Context) string {
	if identity, err := GetIdentityFromContext(c); err == nil {
		return identity.Name
	}
	return ""
}
