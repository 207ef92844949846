package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

// StaticIdentity serves a fixed set of staff identities. It backs the
// static-token professor login when no identity provider is configured.
type StaticIdentity struct {
	mu     sync.RWMutex
	byID   map[string]*models.Identity
	byName map[string]*models.Identity
}

func NewStaticIdentity(identities ...*models.Identity) *StaticIdentity {
	s := &StaticIdentity{
		byID:   make(map[string]*models.Identity),
		byName: make(map[string]*models.Identity),
	}
	for _, identity := range identities {
		s.Add(identity)
	}
	return s
}

func (s *StaticIdentity) Add(identity *models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *identity
	s.byID[cp.ID] = &cp
	s.byName[cp.Name] = &cp
}

func (s *StaticIdentity) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *StaticIdentity) GetByName(ctx context.Context, name string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byName[name]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *StaticIdentity) List(ctx context.Context, filters repositories.IdentityFilters) ([]*models.Identity, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Identity
	for _, identity := range s.byID {
		if filters.Query != "" &&
			!strings.Contains(identity.Name, filters.Query) &&
			!strings.Contains(identity.Email, filters.Query) {
			continue
		}
		cp := *identity
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	total := int64(len(out))
	return paginate(out, repositories.ListFilters{Limit: filters.Limit, Offset: filters.Offset}), total, nil
}

func (s *StaticIdentity) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	identity, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return identity.Role == role || identity.Role == models.RoleAdmin, nil
}
