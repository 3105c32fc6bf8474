package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/registry"
	"github.com/vbncursed/vkr/pass-service/internal/repo"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRegistry(opts ...registry.Option) *registry.Registry {
	opts = append([]registry.Option{registry.WithClock(func() time.Time { return fixedNow })}, opts...)
	return registry.New(repo.NewMemoryStore(), opts...)
}

func rec(serial string) models.IdentityRecord {
	return models.IdentityRecord{
		CustomerID: "C1", OfferID: "O1", WalletType: models.WalletApple,
		SerialNumber: serial, AuthenticationToken: "T1", CacheValidator: `"abcdef0123456789"`,
	}
}

func TestResolveIdentity(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	key := rec("S1").Key()
	got, err := r.ResolveIdentity(ctx, key)
	if err != nil || got != nil {
		t.Fatalf("fresh triple: %+v, %v", got, err)
	}
	if _, err := r.Persist(ctx, rec("S1")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, err = r.ResolveIdentity(ctx, key)
	if err != nil || got == nil || got.SerialNumber != "S1" || got.Status != models.StatusActive {
		t.Fatalf("after persist: %+v, %v", got, err)
	}
	if !got.IssuedAt.Equal(fixedNow) {
		t.Fatalf("issuedAt = %v", got.IssuedAt)
	}
	if _, err := r.ResolveBySerial(ctx, "missing"); apperr.CategoryOf(err) != apperr.CategoryNotFound {
		t.Fatalf("missing serial: %v", err)
	}
}

func TestPersistIsIdempotent(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := r.Persist(ctx, rec("S1"))
		if err != nil || got.SerialNumber != "S1" {
			t.Fatalf("persist %d: %+v, %v", i, got, err)
		}
	}
	loser, err := r.Persist(ctx, rec("S2"))
	if err != nil || loser.SerialNumber != "S1" {
		t.Fatalf("second minter must get the winner: %+v, %v", loser, err)
	}
	if _, err := r.Persist(ctx, models.IdentityRecord{CustomerID: "C1"}); apperr.CategoryOf(err) != apperr.CategoryInvalidInput {
		t.Fatalf("incomplete record: %v", err)
	}
}

func TestMatchesCache(t *testing.T) {
	stored := models.IdentityRecord{CacheValidator: `"abcdef0123456789"`}
	tests := []struct {
		presented string
		want      bool
	}{
		{`"abcdef0123456789"`, true},
		{`abcdef0123456789`, true},
		{`W/"abcdef0123456789"`, true},
		{`"0000", "abcdef0123456789"`, true},
		{`*`, true},
		{`"abcdef012345678a"`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := registry.MatchesCache(stored, tt.presented); got != tt.want {
			t.Fatalf("MatchesCache(%q) = %v", tt.presented, got)
		}
	}
	if registry.MatchesCache(models.IdentityRecord{}, `"x"`) || registry.MatchesCache(models.IdentityRecord{}, "*") {
		t.Fatalf("empty stored validator must never match")
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []models.PassStatus
		to      models.PassStatus
		wantErr apperr.Category
	}{
		{"active to completed", nil, models.StatusCompleted, ""},
		{"active to revoked", nil, models.StatusRevoked, ""},
		{"completed to expired", []models.PassStatus{models.StatusCompleted}, models.StatusExpired, ""},
		{"same state", []models.PassStatus{models.StatusCompleted}, models.StatusCompleted, ""},
		{"completed to active", []models.PassStatus{models.StatusCompleted}, models.StatusActive, apperr.CategoryConflict},
		{"revoked to expired", []models.PassStatus{models.StatusRevoked}, models.StatusExpired, apperr.CategoryConflict},
		{"expired to active", []models.PassStatus{models.StatusExpired}, models.StatusActive, apperr.CategoryConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry()
			ctx := context.Background()
			if _, err := r.Persist(ctx, rec("S1")); err != nil {
				t.Fatalf("Persist: %v", err)
			}
			for _, step := range tt.path {
				if _, err := r.Transition(ctx, "S1", step, nil); err != nil {
					t.Fatalf("setup %s: %v", step, err)
				}
			}
			got, err := r.Transition(ctx, "S1", tt.to, nil)
			if apperr.CategoryOf(err) != tt.wantErr {
				t.Fatalf("err = %v, want category %q", err, tt.wantErr)
			}
			if err == nil && got.Status != tt.to {
				t.Fatalf("status = %s", got.Status)
			}
		})
	}
}

func TestTransitionClearsCacheValidator(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()
	if _, err := r.Persist(ctx, rec("S1")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	exp := fixedNow.Add(24 * time.Hour)
	got, err := r.Transition(ctx, "S1", models.StatusCompleted, &exp)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.CacheValidator != "" {
		t.Fatalf("validator must be cleared, got %q", got.CacheValidator)
	}
	if got.ScheduledExpirationAt == nil || !got.ScheduledExpirationAt.Equal(exp) {
		t.Fatalf("expiration = %v", got.ScheduledExpirationAt)
	}
	if registry.MatchesCache(got, `"abcdef0123456789"`) {
		t.Fatalf("old validator must not match after a status change")
	}
}

func TestAllowPush(t *testing.T) {
	r := newRegistry(registry.WithPushLimit(2, time.Hour))
	ctx := context.Background()
	if _, err := r.Persist(ctx, rec("S1")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := r.AllowPush(ctx, "S1"); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	err := r.AllowPush(ctx, "S1")
	ae, ok := apperr.As(err)
	if !ok || ae.Category != apperr.CategoryRateLimited || ae.Code != "push_limit" {
		t.Fatalf("third push: %v", err)
	}
	if err := r.AllowPush(ctx, "missing"); apperr.CategoryOf(err) != apperr.CategoryNotFound {
		t.Fatalf("missing serial: %v", err)
	}
}

// vanishedWinnerStore loses every insert race to a record that is no
// longer live by the time it is read back.
type vanishedWinnerStore struct {
	*repo.MemoryStore
}

func (vanishedWinnerStore) Upsert(context.Context, models.IdentityRecord) (models.IdentityRecord, error) {
	return models.IdentityRecord{}, registry.ErrStale
}

func TestPersistVanishedWinnerIsConflict(t *testing.T) {
	r := registry.New(vanishedWinnerStore{repo.NewMemoryStore()}, registry.WithClock(func() time.Time { return fixedNow }))
	_, err := r.Persist(context.Background(), rec("S1"))
	ae, ok := apperr.As(err)
	if !ok || ae.Category != apperr.CategoryConflict || ae.Code != "identity_race" {
		t.Fatalf("expected identity_race conflict, got %v", err)
	}
}
