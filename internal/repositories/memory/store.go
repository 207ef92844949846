// Package memory is a process-local implementation of the repositories used
// by tests and by `serve --store memory`. The tx argument of every method is
// ignored; WithTransaction holds the store lock for its whole duration.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
	"github.com/SAP-F-2025/login-approval-service/internal/workflow"
)

type state struct {
	loginRequests []*models.LoginRequest
	codes         []*models.VerificationCode
	finals        []*models.FinalVerification
	grants        map[string]*models.AccessGrant
	users         map[string]*models.User
	flags         map[string]*models.FeatureFlag

	nextRequestID uint
	nextCodeID    uint
	nextFinalID   uint
	nextGrantID   uint
	nextUserID    uint
}

func newState() *state {
	return &state{
		grants: make(map[string]*models.AccessGrant),
		users:  make(map[string]*models.User),
		flags:  make(map[string]*models.FeatureFlag),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextRequestID: s.nextRequestID,
		nextCodeID:    s.nextCodeID,
		nextFinalID:   s.nextFinalID,
		nextGrantID:   s.nextGrantID,
		nextUserID:    s.nextUserID,
		grants:        make(map[string]*models.AccessGrant, len(s.grants)),
		users:         make(map[string]*models.User, len(s.users)),
		flags:         make(map[string]*models.FeatureFlag, len(s.flags)),
	}
	for _, r := range s.loginRequests {
		c.loginRequests = append(c.loginRequests, copyRequest(r))
	}
	for _, v := range s.codes {
		cp := *v
		c.codes = append(c.codes, &cp)
	}
	for _, f := range s.finals {
		cp := *f
		c.finals = append(c.finals, &cp)
	}
	for k, g := range s.grants {
		cp := *g
		c.grants[k] = &cp
	}
	for k, u := range s.users {
		cp := *u
		c.users[k] = &cp
	}
	for k, f := range s.flags {
		cp := *f
		c.flags[k] = &cp
	}
	return c
}

// noLock is the locker of a transaction view; the parent store is already locked
type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// Store implements repositories.Repository in memory
type Store struct {
	mu sync.Locker
	st *state

	// now is swappable so ordering tests can pin timestamps
	now func() time.Time

	identity repositories.IdentityRepository
}

// NewStore creates an empty store. identity may be nil.
func NewStore(identity repositories.IdentityRepository) *Store {
	return &Store{
		mu:       &sync.Mutex{},
		st:       newState(),
		now:      time.Now,
		identity: identity,
	}
}

// SetClock replaces the time source
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) LoginRequest() repositories.LoginRequestRepository {
	return (*loginRequestMemory)(s)
}

func (s *Store) VerificationCode() repositories.VerificationCodeRepository {
	return (*verificationCodeMemory)(s)
}

func (s *Store) FinalVerification() repositories.FinalVerificationRepository {
	return (*finalVerificationMemory)(s)
}

func (s *Store) AccessGrant() repositories.AccessGrantRepository {
	return (*accessGrantMemory)(s)
}

func (s *Store) User() repositories.UserRepository {
	return (*userMemory)(s)
}

func (s *Store) FeatureFlag() repositories.FeatureFlagRepository {
	return (*featureFlagMemory)(s)
}

func (s *Store) Identity() repositories.IdentityRepository {
	return s.identity
}

// WithTransaction runs fn with the store locked, so no other writer can
// interleave. State written by fn is discarded when fn returns an error.
// fn must only use the repository it is given.
func (s *Store) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{
		mu:       noLock{},
		st:       s.st,
		now:      s.now,
		identity: s.identity,
	}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

// ===== LOGIN REQUESTS =====

type loginRequestMemory Store

func copyRequest(r *models.LoginRequest) *models.LoginRequest {
	cp := *r
	if r.VerificationCode != nil {
		code := *r.VerificationCode
		cp.VerificationCode = &code
	}
	if r.Message != nil {
		msg := *r.Message
		cp.Message = &msg
	}
	if r.ProcessedAt != nil {
		at := *r.ProcessedAt
		cp.ProcessedAt = &at
	}
	return &cp
}

// newerFirst orders by created_at DESC, id DESC
func newerFirst(aAt, bAt time.Time, aID, bID uint) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return aID > bID
}

func (r *loginRequestMemory) Create(ctx context.Context, tx *gorm.DB, req *models.LoginRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.st.nextRequestID++
	req.ID = r.st.nextRequestID
	if req.CreatedAt.IsZero() {
		req.CreatedAt = r.now()
	}
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	r.st.loginRequests = append(r.st.loginRequests, copyRequest(req))
	return nil
}

func (r *loginRequestMemory) find(id uint) *models.LoginRequest {
	for _, req := range r.st.loginRequests {
		if req.ID == id {
			return req
		}
	}
	return nil
}

func (r *loginRequestMemory) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.LoginRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req := r.find(id); req != nil {
		return copyRequest(req), nil
	}
	return nil, repositories.ErrNotFound
}

func (r *loginRequestMemory) GetLatestByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.LoginRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *models.LoginRequest
	for _, req := range r.st.loginRequests {
		if req.Username != username {
			continue
		}
		if latest == nil || newerFirst(req.CreatedAt, latest.CreatedAt, req.ID, latest.ID) {
			latest = req
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	return copyRequest(latest), nil
}

func (r *loginRequestMemory) ApplyDecision(ctx context.Context, tx *gorm.DB, id uint, from models.RequestStatus, update repositories.RequestUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req := r.find(id)
	if req == nil || req.Status != from {
		return false, nil
	}
	applied := copyRequest(&models.LoginRequest{
		Message:     update.Message,
		ProcessedAt: update.ProcessedAt,
	})
	req.Status = update.Status
	req.Message = applied.Message
	req.ProcessedAt = applied.ProcessedAt
	if update.FillCode != nil {
		req.VerificationCode = workflow.FillIfAbsent(req.VerificationCode, *update.FillCode)
	}
	return true, nil
}

func (r *loginRequestMemory) SetVerificationCode(ctx context.Context, tx *gorm.DB, id uint, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req := r.find(id)
	if req == nil {
		return repositories.ErrNotFound
	}
	req.VerificationCode = &code
	return nil
}

func (r *loginRequestMemory) List(ctx context.Context, tx *gorm.DB, filters repositories.LoginRequestFilters) ([]*models.LoginRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.LoginRequest
	for _, req := range r.st.loginRequests {
		if filters.Status != nil && req.Status != *filters.Status {
			continue
		}
		if filters.Username != nil && req.Username != *filters.Username {
			continue
		}
		if filters.DateFrom != nil && req.CreatedAt.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && req.CreatedAt.After(*filters.DateTo) {
			continue
		}
		out = append(out, copyRequest(req))
	}

	key := func(req *models.LoginRequest) time.Time {
		if filters.SortBy == "processed_at" {
			if req.ProcessedAt == nil {
				return time.Time{}
			}
			return *req.ProcessedAt
		}
		return req.CreatedAt
	}
	asc := sortAscending(filters.ListFilters, false)
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return newerFirst(key(out[j]), key(out[i]), out[j].ID, out[i].ID)
		}
		return newerFirst(key(out[i]), key(out[j]), out[i].ID, out[j].ID)
	})

	total := int64(len(out))
	return paginate(out, filters.ListFilters), total, nil
}

// ===== VERIFICATION CODES =====

type verificationCodeMemory Store

func (r *verificationCodeMemory) find(username, code string) *models.VerificationCode {
	for _, vc := range r.st.codes {
		if vc.Username == username && vc.Code == code {
			return vc
		}
	}
	return nil
}

func (r *verificationCodeMemory) Upsert(ctx context.Context, tx *gorm.DB, username, code string, status models.CodeStatus) (*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var validatedAt *time.Time
	if status != models.CodePending {
		now := r.now()
		validatedAt = &now
	}

	vc := r.find(username, code)
	if vc == nil {
		r.st.nextCodeID++
		vc = &models.VerificationCode{
			ID:        r.st.nextCodeID,
			Username:  username,
			Code:      code,
			CreatedAt: r.now(),
		}
		r.st.codes = append(r.st.codes, vc)
	}
	vc.ValidationStatus = status
	vc.ValidatedAt = validatedAt

	cp := *vc
	return &cp, nil
}

func (r *verificationCodeMemory) GetByUsernameAndCode(ctx context.Context, tx *gorm.DB, username, code string) (*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vc := r.find(username, code); vc != nil {
		cp := *vc
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *verificationCodeMemory) latest(match func(*models.VerificationCode) bool) (*models.VerificationCode, error) {
	var latest *models.VerificationCode
	for _, vc := range r.st.codes {
		if !match(vc) {
			continue
		}
		if latest == nil || newerFirst(vc.CreatedAt, latest.CreatedAt, vc.ID, latest.ID) {
			latest = vc
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *verificationCodeMemory) GetLatestByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.latest(func(vc *models.VerificationCode) bool { return vc.Username == username })
}

func (r *verificationCodeMemory) GetLatestUnusedForApproved(ctx context.Context, tx *gorm.DB, username string) (*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	approved := false
	for _, req := range r.st.loginRequests {
		if req.Username == username && req.Status == models.RequestApproved {
			approved = true
			break
		}
	}
	if !approved {
		return nil, repositories.ErrNotFound
	}

	return r.latest(func(vc *models.VerificationCode) bool { return vc.Username == username && !vc.Used })
}

func (r *verificationCodeMemory) MarkValidated(ctx context.Context, tx *gorm.DB, id uint, status models.CodeStatus, markUsed bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, vc := range r.st.codes {
		if vc.ID != id {
			continue
		}
		if markUsed {
			if vc.Used {
				return false, nil
			}
			vc.Used = true
		}
		now := r.now()
		vc.ValidationStatus = status
		vc.ValidatedAt = &now
		return true, nil
	}
	return false, nil
}

func (r *verificationCodeMemory) ListByStatus(ctx context.Context, tx *gorm.DB, status models.CodeStatus) ([]*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.VerificationCode
	for _, vc := range r.st.codes {
		if vc.ValidationStatus == status {
			cp := *vc
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
	})
	return out, nil
}

func (r *verificationCodeMemory) List(ctx context.Context, tx *gorm.DB, filters repositories.ListFilters) ([]*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.VerificationCode, 0, len(r.st.codes))
	for _, vc := range r.st.codes {
		cp := *vc
		out = append(out, &cp)
	}
	asc := sortAscending(filters, false)
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return newerFirst(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
		}
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return paginate(out, filters), nil
}

// ===== FINAL VERIFICATIONS =====

type finalVerificationMemory Store

func (r *finalVerificationMemory) Create(ctx context.Context, tx *gorm.DB, fv *models.FinalVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.st.nextFinalID++
	fv.ID = r.st.nextFinalID
	if fv.CreatedAt.IsZero() {
		fv.CreatedAt = r.now()
	}
	if fv.Status == "" {
		fv.Status = models.FinalPending
	}
	cp := *fv
	r.st.finals = append(r.st.finals, &cp)
	return nil
}

func (r *finalVerificationMemory) GetLatestByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.FinalVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *models.FinalVerification
	for _, fv := range r.st.finals {
		if fv.Username != username {
			continue
		}
		if latest == nil || newerFirst(fv.CreatedAt, latest.CreatedAt, fv.ID, latest.ID) {
			latest = fv
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *finalVerificationMemory) DecidePending(ctx context.Context, tx *gorm.DB, username string, status models.FinalStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed int64
	now := r.now()
	for _, fv := range r.st.finals {
		if fv.Username == username && fv.Status == models.FinalPending {
			at := now
			fv.Status = status
			fv.ProcessedAt = &at
			changed++
		}
	}
	return changed, nil
}

func (r *finalVerificationMemory) List(ctx context.Context, tx *gorm.DB, status *models.FinalStatus) ([]*models.FinalVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.FinalVerification
	for _, fv := range r.st.finals {
		if status != nil && fv.Status != *status {
			continue
		}
		cp := *fv
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// ===== ACCESS GRANTS =====

type accessGrantMemory Store

func (r *accessGrantMemory) Upsert(ctx context.Context, tx *gorm.DB, username string, granted bool) (*models.AccessGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	grant, ok := r.st.grants[username]
	if !ok {
		r.st.nextGrantID++
		grant = &models.AccessGrant{ID: r.st.nextGrantID, Username: username}
		r.st.grants[username] = grant
	}
	grant.Granted = granted
	grant.UpdatedAt = now
	if granted {
		at := now
		grant.GrantedAt = &at
	} else {
		grant.GrantedAt = nil
	}

	cp := *grant
	return &cp, nil
}

func (r *accessGrantMemory) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.AccessGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	grant, ok := r.st.grants[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *grant
	return &cp, nil
}

// ===== USERS =====

type userMemory Store

func (r *userMemory) Upsert(ctx context.Context, tx *gorm.DB, username, password string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	user, ok := r.st.users[username]
	if !ok {
		r.st.nextUserID++
		user = &models.User{ID: r.st.nextUserID, Username: username, CreatedAt: now}
		r.st.users[username] = user
	}
	user.Password = password
	user.UpdatedAt = now

	cp := *user
	return &cp, nil
}

func (r *userMemory) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.st.users[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *userMemory) List(ctx context.Context, tx *gorm.DB, filters repositories.ListFilters) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.User, 0, len(r.st.users))
	for _, user := range r.st.users {
		cp := *user
		out = append(out, &cp)
	}
	asc := sortAscending(filters, false)
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return newerFirst(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
		}
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return paginate(out, filters), nil
}

// ===== FEATURE FLAGS =====

type featureFlagMemory Store

func (r *featureFlagMemory) Get(ctx context.Context, tx *gorm.DB, key string) (*models.FeatureFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flag, ok := r.st.flags[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *flag
	return &cp, nil
}

func (r *featureFlagMemory) Set(ctx context.Context, tx *gorm.DB, key string, enabled bool) (*models.FeatureFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flag := &models.FeatureFlag{Key: key, Enabled: enabled, UpdatedAt: r.now()}
	r.st.flags[key] = flag
	cp := *flag
	return &cp, nil
}

func (r *featureFlagMemory) List(ctx context.Context, tx *gorm.DB) ([]*models.FeatureFlag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.FeatureFlag, 0, len(r.st.flags))
	for _, flag := range r.st.flags {
		cp := *flag
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// ===== HELPERS =====

func sortAscending(filters repositories.ListFilters, def bool) bool {
	switch filters.SortOrder {
	case "asc", "ASC":
		return true
	case "desc", "DESC":
		return false
	}
	return def
}

func paginate[T any](items []T, filters repositories.ListFilters) []T {
	if filters.Offset > 0 {
		if filters.Offset >= len(items) {
			return []T{}
		}
		items = items[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(items) {
		items = items[:filters.Limit]
	}
	return items
}
