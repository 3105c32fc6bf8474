// Package registry owns pass identity records: which serial and token a
// (customer, offer, wallet) triple is bound to, its lifecycle status, the
// last cache validator and the push budget.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/models"
)

var (
	ErrNotFound          = errors.New("pass identity not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrStale is returned by Store.UpdateStatus when the record no
	// longer has the expected status, and by Store.Upsert when the live
	// record that won an insert race is gone before it could be read.
	ErrStale = errors.New("pass identity changed concurrently")
)

const (
	DefaultPushLimit  = 10
	DefaultPushWindow = 24 * time.Hour
)

// Store is the persistence port. Implementations must make Upsert
// first-writer-wins for live records of one triple.
type Store interface {
	FindLive(ctx context.Context, key models.PassKey) (models.IdentityRecord, error)
	FindBySerial(ctx context.Context, serial string) (models.IdentityRecord, error)
	// Upsert refreshes the cache validator of rec.SerialNumber when it
	// exists, inserts rec otherwise, and returns the live winner for the
	// triple when another serial got there first.
	Upsert(ctx context.Context, rec models.IdentityRecord) (models.IdentityRecord, error)
	UpdateStatus(ctx context.Context, serial string, from, to models.PassStatus, expiresAt *time.Time, now time.Time) (models.IdentityRecord, error)
	// ConsumePush atomically spends one push from the record's window and
	// reports whether it was allowed.
	ConsumePush(ctx context.Context, serial string, now time.Time, window time.Duration, limit int) (bool, error)
}

type Registry struct {
	store      Store
	now        func() time.Time
	logger     *slog.Logger
	pushLimit  int
	pushWindow time.Duration
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

func WithLogger(l *slog.Logger) Option { return func(r *Registry) { r.logger = l } }

// WithPushLimit sets the per-record push budget; non-positive values keep
// the defaults.
func WithPushLimit(limit int, window time.Duration) Option {
	return func(r *Registry) {
		if limit > 0 {
			r.pushLimit = limit
		}
		if window > 0 {
			r.pushWindow = window
		}
	}
}

func New(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:      store,
		now:        time.Now,
		logger:     slog.New(slog.DiscardHandler),
		pushLimit:  DefaultPushLimit,
		pushWindow: DefaultPushWindow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveIdentity returns the live record for the triple, if any.
func (r *Registry) ResolveIdentity(ctx context.Context, key models.PassKey) (*models.IdentityRecord, error) {
	rec, err := r.store.FindLive(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Infra(err, apperr.StageRegistry, "identity_lookup", "identity store unavailable")
	}
	return &rec, nil
}

// ResolveBySerial returns the record for serial in any status.
func (r *Registry) ResolveBySerial(ctx context.Context, serial string) (models.IdentityRecord, error) {
	rec, err := r.store.FindBySerial(ctx, serial)
	if errors.Is(err, ErrNotFound) {
		return rec, apperr.Wrap(err, apperr.CategoryNotFound, apperr.StageRegistry, "pass_not_found", "pass not found")
	}
	if err != nil {
		return rec, apperr.Infra(err, apperr.StageRegistry, "identity_lookup", "identity store unavailable")
	}
	return rec, nil
}

// Persist stores rec after a successful build. Repeating it is harmless.
// The returned record is the stored winner: when its serial differs from
// rec's, a concurrent issuer minted first and the caller must rebuild.
func (r *Registry) Persist(ctx context.Context, rec models.IdentityRecord) (models.IdentityRecord, error) {
	if rec.SerialNumber == "" || rec.AuthenticationToken == "" {
		return rec, apperr.Invalid(apperr.StageRegistry, "identity_incomplete", "serial and token are required")
	}
	if rec.Status == "" {
		rec.Status = models.StatusActive
	}
	now := r.now().UTC()
	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = now
	}
	rec.UpdatedAt = now
	stored, err := r.store.Upsert(ctx, rec)
	switch {
	case errors.Is(err, ErrStale):
		return rec, apperr.Wrap(err, apperr.CategoryConflict, apperr.StageRegistry, "identity_race", "pass identity changed concurrently, retry")
	case err != nil:
		return rec, apperr.Infra(err, apperr.StageRegistry, "identity_write", "identity store unavailable")
	}
	if stored.SerialNumber != rec.SerialNumber {
		r.logger.Info("concurrent issue lost, adopting winner",
			"customer_id", rec.CustomerID, "offer_id", rec.OfferID,
			"minted", rec.SerialNumber, "winner", stored.SerialNumber)
	}
	return stored, nil
}

// MatchesCache compares a client-presented validator with the stored one.
// Weak prefixes and missing quotes are tolerated; an empty stored value
// never matches.
func MatchesCache(rec models.IdentityRecord, presented string) bool {
	stored := normalizeValidator(rec.CacheValidator)
	if stored == "" {
		return false
	}
	for _, candidate := range strings.Split(presented, ",") {
		if c := strings.TrimSpace(candidate); c == "*" || normalizeValidator(c) == stored {
			return true
		}
	}
	return false
}

func normalizeValidator(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

// Transition moves serial to status to. Moving to the current status is a
// no-op; regressions are rejected. The stored cache validator is cleared
// so the next conditional fetch rebuilds.
func (r *Registry) Transition(ctx context.Context, serial string, to models.PassStatus, expiresAt *time.Time) (models.IdentityRecord, error) {
	rec, err := r.ResolveBySerial(ctx, serial)
	if err != nil {
		return rec, err
	}
	if rec.Status == to && expiresAt == nil {
		return rec, nil
	}
	if rec.Status != to && !rec.Status.CanTransition(to) {
		return rec, apperr.Wrap(
			fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, to),
			apperr.CategoryConflict, apperr.StageRegistry, "invalid_transition",
			fmt.Sprintf("cannot move pass from %s to %s", rec.Status, to))
	}
	updated, err := r.store.UpdateStatus(ctx, serial, rec.Status, to, expiresAt, r.now().UTC())
	switch {
	case errors.Is(err, ErrStale):
		return rec, apperr.Wrap(err, apperr.CategoryConflict, apperr.StageRegistry, "status_changed", "pass status changed concurrently, retry")
	case errors.Is(err, ErrNotFound):
		return rec, apperr.Wrap(err, apperr.CategoryNotFound, apperr.StageRegistry, "pass_not_found", "pass not found")
	case err != nil:
		return rec, apperr.Infra(err, apperr.StageRegistry, "identity_write", "identity store unavailable")
	}
	r.logger.Info("pass status changed", "serial", serial, "from", rec.Status, "to", to)
	return updated, nil
}

// AllowPush spends one push from the record's budget. It returns a
// rate_limited error when the window is exhausted.
func (r *Registry) AllowPush(ctx context.Context, serial string) error {
	ok, err := r.store.ConsumePush(ctx, serial, r.now().UTC(), r.pushWindow, r.pushLimit)
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(err, apperr.CategoryNotFound, apperr.StageRegistry, "pass_not_found", "pass not found")
	case err != nil:
		return apperr.Infra(err, apperr.StageRegistry, "push_counter", "identity store unavailable")
	case !ok:
		return apperr.New(apperr.CategoryRateLimited, apperr.StageRegistry, "push_limit",
			fmt.Sprintf("at most %d updates per %s", r.pushLimit, r.pushWindow))
	}
	return nil
}

func (r *Registry) PushLimit() (int, time.Duration) { return r.pushLimit, r.pushWindow }
