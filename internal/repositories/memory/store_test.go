package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/internal/repositories"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLatestRequestTieBreaksOnID(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	store.SetClock(fixedClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))

	first := &models.LoginRequest{Username: "alice", AuthProvider: models.ProviderApple}
	second := &models.LoginRequest{Username: "alice", AuthProvider: models.ProviderGoogle}
	if err := store.LoginRequest().Create(ctx, nil, first); err != nil {
		t.Fatal(err)
	}
	if err := store.LoginRequest().Create(ctx, nil, second); err != nil {
		t.Fatal(err)
	}

	latest, err := store.LoginRequest().GetLatestByUsername(ctx, nil, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != second.ID {
		t.Errorf("expected request %d, got %d", second.ID, latest.ID)
	}

	if _, err := store.LoginRequest().GetLatestByUsername(ctx, nil, "nobody"); !repositories.IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestApplyDecisionIsGuardedByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	req := &models.LoginRequest{Username: "alice", AuthProvider: models.ProviderApple}
	_ = store.LoginRequest().Create(ctx, nil, req)

	now := time.Now()
	ok, err := store.LoginRequest().ApplyDecision(ctx, nil, req.ID, models.RequestPending, repositories.RequestUpdate{
		Status:      models.RequestApproved,
		ProcessedAt: &now,
	})
	if err != nil || !ok {
		t.Fatalf("first decision should apply, ok=%v err=%v", ok, err)
	}

	ok, err = store.LoginRequest().ApplyDecision(ctx, nil, req.ID, models.RequestPending, repositories.RequestUpdate{
		Status:      models.RequestRejected,
		ProcessedAt: &now,
	})
	if err != nil || ok {
		t.Fatalf("stale decision should not apply, ok=%v err=%v", ok, err)
	}

	got, _ := store.LoginRequest().GetByID(ctx, nil, req.ID)
	if got.Status != models.RequestApproved {
		t.Errorf("status = %s, want approved", got.Status)
	}
}

func TestApplyDecisionFillsCodeOnlyWhenAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	now := time.Now()

	tests := []struct {
		name     string
		existing string
		fill     *string
		want     string
	}{
		{name: "no fill keeps code", existing: "111111", want: "111111"},
		{name: "fill keeps existing code", existing: "111111", fill: strPtr("222222"), want: "111111"},
		{name: "fill sets missing code", fill: strPtr("222222"), want: "222222"},
		{name: "no fill leaves code empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.LoginRequest{Username: "alice", AuthProvider: models.ProviderApple}
			_ = store.LoginRequest().Create(ctx, nil, req)
			if tt.existing != "" {
				_ = store.LoginRequest().SetVerificationCode(ctx, nil, req.ID, tt.existing)
			}

			ok, err := store.LoginRequest().ApplyDecision(ctx, nil, req.ID, models.RequestPending, repositories.RequestUpdate{
				Status:      models.RequestApproved,
				FillCode:    tt.fill,
				ProcessedAt: &now,
			})
			if err != nil || !ok {
				t.Fatalf("decision should apply, ok=%v err=%v", ok, err)
			}

			got, _ := store.LoginRequest().GetByID(ctx, nil, req.ID)
			switch {
			case tt.want == "" && got.VerificationCode != nil:
				t.Errorf("code = %s, want none", *got.VerificationCode)
			case tt.want != "" && (got.VerificationCode == nil || *got.VerificationCode != tt.want):
				t.Errorf("code = %v, want %s", got.VerificationCode, tt.want)
			}
		})
	}
}

func TestVerificationCodeUpsertKeepsOneRowPerPair(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	codes := store.VerificationCode()

	a, _ := codes.Upsert(ctx, nil, "alice", "123456", models.CodePending)
	b, _ := codes.Upsert(ctx, nil, "alice", "123456", models.CodeApproved)
	if a.ID != b.ID {
		t.Errorf("upsert created a second row: %d != %d", a.ID, b.ID)
	}
	if b.ValidationStatus != models.CodeApproved || b.ValidatedAt == nil {
		t.Errorf("upsert did not update status: %+v", b)
	}

	all, _ := codes.List(ctx, nil, repositories.ListFilters{})
	if len(all) != 1 {
		t.Errorf("expected 1 row, got %d", len(all))
	}
}

func TestLatestUnusedRequiresApprovedRequest(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	_, _ = store.VerificationCode().Upsert(ctx, nil, "carol", "111111", models.CodePending)
	if _, err := store.VerificationCode().GetLatestUnusedForApproved(ctx, nil, "carol"); !repositories.IsNotFoundError(err) {
		t.Fatalf("expected not found without approved request, got %v", err)
	}

	req := &models.LoginRequest{Username: "carol", AuthProvider: models.ProviderApple}
	_ = store.LoginRequest().Create(ctx, nil, req)
	now := time.Now()
	_, _ = store.LoginRequest().ApplyDecision(ctx, nil, req.ID, models.RequestPending, repositories.RequestUpdate{Status: models.RequestApproved, ProcessedAt: &now})

	vc, err := store.VerificationCode().GetLatestUnusedForApproved(ctx, nil, "carol")
	if err != nil {
		t.Fatal(err)
	}

	ok, _ := store.VerificationCode().MarkValidated(ctx, nil, vc.ID, models.CodeApproved, true)
	if !ok {
		t.Fatal("first mark should succeed")
	}
	ok, _ = store.VerificationCode().MarkValidated(ctx, nil, vc.ID, models.CodeApproved, true)
	if ok {
		t.Error("second mark of a used code should not apply")
	}
	if _, err := store.VerificationCode().GetLatestUnusedForApproved(ctx, nil, "carol"); !repositories.IsNotFoundError(err) {
		t.Errorf("used code should no longer be returned, got %v", err)
	}
}

func TestDecidePendingOnlyTouchesPending(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	finals := store.FinalVerification()

	_ = finals.Create(ctx, nil, &models.FinalVerification{Username: "bob"})
	n, _ := finals.DecidePending(ctx, nil, "bob", models.FinalApproved)
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
	n, _ = finals.DecidePending(ctx, nil, "bob", models.FinalRejected)
	if n != 0 {
		t.Fatalf("expected 0 rows on second decision, got %d", n)
	}

	latest, _ := finals.GetLatestByUsername(ctx, nil, "bob")
	if latest.Status != models.FinalApproved {
		t.Errorf("status = %s, want approved", latest.Status)
	}
}

func TestWithTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	boom := errors.New("boom")

	err := store.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.User().Upsert(ctx, nil, "dave", "pw"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.User().GetByUsername(ctx, nil, "dave"); !repositories.IsNotFoundError(err) {
		t.Errorf("user should have been rolled back, got %v", err)
	}

	err = store.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.User().Upsert(ctx, nil, "dave", "pw"); err != nil {
			return err
		}
		_, err := tx.AccessGrant().Upsert(ctx, nil, "dave", true)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	grant, err := store.AccessGrant().GetByUsername(ctx, nil, "dave")
	if err != nil || !grant.Granted || grant.GrantedAt == nil {
		t.Errorf("grant not committed: %+v %v", grant, err)
	}
}

func TestWithTransactionKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	boom := errors.New("boom")

	done := make(chan error, 1)
	err := store.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.User().Upsert(ctx, nil, "dave", "pw"); err != nil {
			return err
		}
		go func() {
			_, err := store.User().Upsert(ctx, nil, "erin", "pw")
			done <- err
		}()
		time.Sleep(10 * time.Millisecond)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if _, err := store.User().GetByUsername(ctx, nil, "dave"); !repositories.IsNotFoundError(err) {
		t.Errorf("dave should have been rolled back, got %v", err)
	}
	if _, err := store.User().GetByUsername(ctx, nil, "erin"); err != nil {
		t.Errorf("write made outside the transaction was lost: %v", err)
	}
}

func TestListRequestsOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c"} {
		store.SetClock(fixedClock(base.Add(time.Duration(i) * time.Minute)))
		_ = store.LoginRequest().Create(ctx, nil, &models.LoginRequest{Username: name, AuthProvider: models.ProviderApple})
	}

	pending := models.RequestPending
	asc, total, err := store.LoginRequest().List(ctx, nil, repositories.LoginRequestFilters{
		ListFilters: repositories.ListFilters{SortBy: "created_at", SortOrder: "asc"},
		Status:      &pending,
	})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || asc[0].Username != "a" || asc[2].Username != "c" {
		t.Errorf("unexpected ascending order: %v", usernames(asc))
	}

	page, _, _ := store.LoginRequest().List(ctx, nil, repositories.LoginRequestFilters{
		ListFilters: repositories.ListFilters{Limit: 1, Offset: 1},
	})
	if len(page) != 1 || page[0].Username != "b" {
		t.Errorf("unexpected page: %v", usernames(page))
	}
}

func TestStaticIdentity(t *testing.T) {
	ctx := context.Background()
	ids := NewStaticIdentity(
		&models.Identity{ID: "p1", Name: "prof", Role: models.RoleProfessor},
		&models.Identity{ID: "a1", Name: "root", Role: models.RoleAdmin},
	)

	tests := []struct {
		id   string
		role models.UserRole
		want bool
	}{
		{"p1", models.RoleProfessor, true},
		{"p1", models.RoleAdmin, false},
		{"a1", models.RoleProfessor, true},
	}
	for _, tt := range tests {
		got, err := ids.HasRole(ctx, tt.id, tt.role)
		if err != nil || got != tt.want {
			t.Errorf("HasRole(%s, %s) = %v, %v; want %v", tt.id, tt.role, got, err, tt.want)
		}
	}

	if _, err := ids.GetByName(ctx, "ghost"); !repositories.IsNotFoundError(err) {
		t.Errorf("expected not found, got %v", err)
	}
	list, total, _ := ids.List(ctx, repositories.IdentityFilters{Query: "pro"})
	if total != 1 || list[0].ID != "p1" {
		t.Errorf("unexpected list result %v", list)
	}
}

func usernames(reqs []*models.LoginRequest) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Username)
	}
	return out
}

func strPtr(s string) *string { return &s }
