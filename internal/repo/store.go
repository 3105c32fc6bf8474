package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/registry"
)

// Store — адаптер Postgres, реализующий registry.Store
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

var _ registry.Store = (*Store)(nil)

func scanIdentity(row pgx.Row) (models.IdentityRecord, error) {
	var (
		r      models.IdentityRecord
		wallet string
		status string
	)
	err := row.Scan(&r.SerialNumber, &r.CustomerID, &r.OfferID, &wallet,
		&r.AuthenticationToken, &r.CacheValidator, &status, &r.ScheduledExpirationAt,
		&r.IssuedAt, &r.UpdatedAt, &r.PushWindowStart, &r.PushCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return r, registry.ErrNotFound
	}
	r.WalletType = models.WalletType(wallet)
	r.Status = models.PassStatus(status)
	return r, err
}

// FindLive — активная или завершённая запись тройки
func (s *Store) FindLive(ctx context.Context, key models.PassKey) (models.IdentityRecord, error) {
	return scanIdentity(s.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM `+tableIdentities+
		` WHERE `+colCustomerID+`=$1 AND `+colOfferID+`=$2 AND `+colWalletType+`=$3 AND `+liveStatuses,
		key.CustomerID, key.OfferID, string(key.WalletType)))
}

func (s *Store) FindBySerial(ctx context.Context, serial string) (models.IdentityRecord, error) {
	return scanIdentity(s.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM `+tableIdentities+
		` WHERE `+colSerial+`=$1`, serial))
}

// Upsert — обновить валидатор существующего серийника, иначе вставить;
// при конфликте по тройке вернуть победителя.
func (s *Store) Upsert(ctx context.Context, rec models.IdentityRecord) (models.IdentityRecord, error) {
	updated, err := scanIdentity(s.pool.QueryRow(ctx, `UPDATE `+tableIdentities+` SET `+
		colCacheValidator+`=$2, `+colUpdatedAt+`=$3 WHERE `+colSerial+`=$1 RETURNING `+identityColumns,
		rec.SerialNumber, rec.CacheValidator, rec.UpdatedAt))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, registry.ErrNotFound) {
		return rec, err
	}

	inserted, err := scanIdentity(s.pool.QueryRow(ctx, `INSERT INTO `+tableIdentities+` (`+
		colSerial+`, `+colCustomerID+`, `+colOfferID+`, `+colWalletType+`, `+colAuthToken+`, `+
		colCacheValidator+`, `+colStatus+`, `+colScheduledExpiry+`, `+colIssuedAt+`, `+colUpdatedAt+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT DO NOTHING RETURNING `+identityColumns,
		rec.SerialNumber, rec.CustomerID, rec.OfferID, string(rec.WalletType), rec.AuthenticationToken,
		rec.CacheValidator, string(rec.Status), rec.ScheduledExpirationAt, rec.IssuedAt, rec.UpdatedAt))
	if err == nil {
		return inserted, nil
	}
	if !errors.Is(err, registry.ErrNotFound) {
		return rec, err
	}
	// проиграли гонку: живая запись тройки уже есть
	winner, err := s.FindLive(ctx, rec.Key())
	if errors.Is(err, registry.ErrNotFound) {
		// победитель успел стать терминальным
		return rec, registry.ErrStale
	}
	return winner, err
}

// UpdateStatus — compare-and-set по текущему статусу; сбрасывает валидатор
func (s *Store) UpdateStatus(ctx context.Context, serial string, from, to models.PassStatus, expiresAt *time.Time, now time.Time) (models.IdentityRecord, error) {
	rec, err := scanIdentity(s.pool.QueryRow(ctx, `UPDATE `+tableIdentities+` SET `+
		colStatus+`=$3, `+colScheduledExpiry+`=COALESCE($4, `+colScheduledExpiry+`), `+
		colCacheValidator+`='', `+colUpdatedAt+`=$5 WHERE `+colSerial+`=$1 AND `+colStatus+`=$2 RETURNING `+identityColumns,
		serial, string(from), string(to), expiresAt, now))
	if !errors.Is(err, registry.ErrNotFound) {
		return rec, err
	}
	if _, err := s.FindBySerial(ctx, serial); err != nil {
		return rec, err
	}
	return rec, registry.ErrStale
}

// ConsumePush — атомарный счётчик в строке записи с окном window
func (s *Store) ConsumePush(ctx context.Context, serial string, now time.Time, window time.Duration, limit int) (bool, error) {
	cutoff := now.Add(-window)
	var count int
	err := s.pool.QueryRow(ctx, `UPDATE `+tableIdentities+` SET
		`+colPushCount+` = CASE WHEN `+colPushWindowStart+` IS NULL OR `+colPushWindowStart+` <= $3 THEN 1 ELSE `+colPushCount+` + 1 END,
		`+colPushWindowStart+` = CASE WHEN `+colPushWindowStart+` IS NULL OR `+colPushWindowStart+` <= $3 THEN $2 ELSE `+colPushWindowStart+` END
		WHERE `+colSerial+`=$1 AND (`+colPushWindowStart+` IS NULL OR `+colPushWindowStart+` <= $3 OR `+colPushCount+` < $4)
		RETURNING `+colPushCount, serial, now, cutoff, limit).Scan(&count)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	if _, err := s.FindBySerial(ctx, serial); err != nil {
		return false, err
	}
	return false, nil
}
