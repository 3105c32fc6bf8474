package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/assets"
	"github.com/vbncursed/vkr/pass-service/internal/bundle"
	"github.com/vbncursed/vkr/pass-service/internal/catalog"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/passdata"
	"github.com/vbncursed/vkr/pass-service/internal/registry"
)

// DefaultPersistTimeout ограничивает запись в реестр, которая идёт уже
// без отмены со стороны клиента.
const DefaultPersistTimeout = 5 * time.Second

// Deps — зависимости сервиса
type Deps struct {
	Catalog        Catalog
	Registry       Registry
	Assembler      Assembler
	Assets         AssetBuilder
	Signer         Signer
	Packager       Packager
	Notifier       Notifier
	Clock          Clock
	Logger         *slog.Logger
	PersistTimeout time.Duration
}

// Service реализует use case'ы выпуска и обновления пропусков
type Service struct {
	d     Deps
	log   *slog.Logger
	group singleflight.Group
}

func New(d Deps) (*Service, error) {
	if d.Catalog == nil || d.Registry == nil || d.Assembler == nil || d.Assets == nil || d.Signer == nil || d.Packager == nil {
		return nil, errors.New("service: catalog, registry, assembler, assets, signer and packager are required")
	}
	if d.Clock == nil {
		d.Clock = RealClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Notifier == nil {
		d.Notifier = LogNotifier{Logger: d.Logger}
	}
	if d.PersistTimeout <= 0 {
		d.PersistTimeout = DefaultPersistTimeout
	}
	return &Service{d: d, log: d.Logger}, nil
}

// Issue — выпуск или перевыпуск пропуска для тройки. Одновременные вызовы
// для одной тройки в процессе схлопываются; конвейер доводится до конца
// даже если клиент отключился.
func (s *Service) Issue(ctx context.Context, cmd IssueCommand) (PassBundle, error) {
	if strings.TrimSpace(cmd.CustomerID) == "" || strings.TrimSpace(cmd.OfferID) == "" {
		return PassBundle{}, apperr.Invalid(apperr.StageCatalog, "ids_required", "customer_id and offer_id are required")
	}
	if _, ok := models.ParseWalletType(string(cmd.WalletType)); !ok {
		return PassBundle{}, apperr.Invalid(apperr.StageCatalog, "wallet_type_invalid", "wallet_type must be apple or google")
	}
	key := cmd.CustomerID + "\x00" + cmd.OfferID + "\x00" + string(cmd.WalletType)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.issue(context.WithoutCancel(ctx), cmd)
	})
	select {
	case <-ctx.Done():
		// выпуск доводится до конца в фоне; клиенту сообщаем, что ответа не будет
		return PassBundle{}, apperr.Infra(ctx.Err(), apperr.StageRegistry, "request_canceled", "request canceled before the pass was ready")
	case r := <-ch:
		if r.Err != nil {
			return PassBundle{}, r.Err
		}
		return r.Val.(PassBundle), nil
	}
}

func (s *Service) issue(ctx context.Context, cmd IssueCommand) (PassBundle, error) {
	started := s.d.Clock.Now()
	entry, err := s.lookup(ctx, cmd.CustomerID, cmd.OfferID)
	if err != nil {
		return PassBundle{}, err
	}
	key := models.PassKey{CustomerID: cmd.CustomerID, OfferID: cmd.OfferID, WalletType: cmd.WalletType}
	existing, err := s.d.Registry.ResolveIdentity(ctx, key)
	if err != nil {
		return PassBundle{}, err
	}

	built, err := s.build(ctx, entry, cmd.WalletType, existing)
	if err != nil {
		return PassBundle{}, err
	}
	var stored models.IdentityRecord
	if existing != nil && existing.CacheValidator == built.bundle.CacheValidator {
		stored = *existing
	} else if stored, err = s.persist(ctx, built.record(key)); err != nil {
		return PassBundle{}, err
	}
	if stored.SerialNumber != built.bundle.SerialNumber {
		// другой выпуск успел первым: пересобираем под победителя
		if built, err = s.build(ctx, entry, cmd.WalletType, &stored); err != nil {
			return PassBundle{}, err
		}
		if stored, err = s.persist(ctx, built.record(key)); err != nil {
			return PassBundle{}, err
		}
		if stored.SerialNumber != built.bundle.SerialNumber {
			return PassBundle{}, apperr.Wrap(ErrLostRace, apperr.CategoryConflict, apperr.StageRegistry,
				"identity_race", "pass identity changed concurrently, retry")
		}
	}
	out := built.bundle
	out.LastModified = stored.UpdatedAt
	s.log.Info("pass issued",
		"serial", out.SerialNumber, "customer_id", cmd.CustomerID, "offer_id", cmd.OfferID,
		"wallet_type", cmd.WalletType, "minted", out.Minted, "etag", out.CacheValidator, "bytes", len(out.Data),
		"took", s.d.Clock.Now().Sub(started))
	return out, nil
}

// FetchBySerial — эндпоинт обновления кошелька. Совпавший валидатор даёт
// NotModified без сборки и упаковки.
func (s *Service) FetchBySerial(ctx context.Context, cmd FetchCommand) (FetchResult, error) {
	certs := s.d.Signer.Certificates()
	if certs != nil && certs.PassTypeIdentifier != "" && cmd.PassTypeIdentifier != certs.PassTypeIdentifier {
		return FetchResult{}, apperr.Wrap(ErrUnknownPassType, apperr.CategoryNotFound, apperr.StageRegistry, "pass_not_found", "pass not found")
	}
	rec, err := s.d.Registry.ResolveBySerial(ctx, cmd.SerialNumber)
	if err != nil {
		return FetchResult{}, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.AuthenticationToken), []byte(cmd.AuthenticationToken)) != 1 {
		return FetchResult{}, apperr.Wrap(ErrBadAuthToken, apperr.CategoryUnauthorized, apperr.StageRegistry, "bad_token", "authentication token does not match")
	}
	return s.fetch(ctx, rec, cmd.IfNoneMatch)
}

// FetchByTriple — текущий бандл тройки для эмитента. Ничего не выпускает:
// без живой записи отвечает not_found, совпавший валидатор даёт
// NotModified без сборки и упаковки.
func (s *Service) FetchByTriple(ctx context.Context, cmd FetchByTripleCommand) (FetchResult, error) {
	if strings.TrimSpace(cmd.CustomerID) == "" || strings.TrimSpace(cmd.OfferID) == "" {
		return FetchResult{}, apperr.Invalid(apperr.StageRegistry, "ids_required", "customer_id and offer_id are required")
	}
	if _, ok := models.ParseWalletType(string(cmd.WalletType)); !ok {
		return FetchResult{}, apperr.Invalid(apperr.StageRegistry, "wallet_type_invalid", "wallet_type must be apple or google")
	}
	key := models.PassKey{CustomerID: cmd.CustomerID, OfferID: cmd.OfferID, WalletType: cmd.WalletType}
	rec, err := s.d.Registry.ResolveIdentity(ctx, key)
	if err != nil {
		return FetchResult{}, err
	}
	if rec == nil {
		return FetchResult{}, apperr.Wrap(ErrNotIssued, apperr.CategoryNotFound, apperr.StageRegistry, "pass_not_found", "pass not found")
	}
	return s.fetch(ctx, *rec, cmd.IfNoneMatch)
}

// fetch отвечает по сохранённому валидатору, а при промахе пересобирает
// бандл существующей записи.
func (s *Service) fetch(ctx context.Context, rec models.IdentityRecord, ifNoneMatch string) (FetchResult, error) {
	if registry.MatchesCache(rec, ifNoneMatch) {
		return FetchResult{NotModified: true, Bundle: PassBundle{
			SerialNumber: rec.SerialNumber, CacheValidator: rec.CacheValidator,
			Status: rec.Status, LastModified: rec.UpdatedAt,
		}}, nil
	}
	out, _, err := s.rebuild(context.WithoutCancel(ctx), rec)
	if err != nil {
		return FetchResult{}, err
	}
	if registry.MatchesCache(models.IdentityRecord{CacheValidator: out.CacheValidator}, ifNoneMatch) {
		out.Data = nil
		return FetchResult{NotModified: true, Bundle: out}, nil
	}
	return FetchResult{Bundle: out}, nil
}

// ChangeStatus — переход жизненного цикла; устройства уведомляются, если
// позволяет лимит.
func (s *Service) ChangeStatus(ctx context.Context, cmd ChangeStatusCommand) (models.IdentityRecord, error) {
	if _, ok := models.ParsePassStatus(string(cmd.Status)); !ok {
		return models.IdentityRecord{}, apperr.Invalid(apperr.StageRegistry, "status_invalid", fmt.Sprintf("unknown status %q", cmd.Status))
	}
	rec, err := s.d.Registry.Transition(ctx, cmd.SerialNumber, cmd.Status, cmd.ScheduledExpirationAt)
	if err != nil {
		return rec, err
	}
	if _, err := s.RequestPush(context.WithoutCancel(ctx), cmd.SerialNumber); err != nil {
		s.log.Warn("status change push skipped", "serial", cmd.SerialNumber, "err", err)
	}
	return rec, nil
}

// RequestPush пересобирает пропуск, сохраняет новый валидатор и уведомляет
// устройства. Лимит проверяется до любой работы.
func (s *Service) RequestPush(ctx context.Context, serial string) (PushResult, error) {
	rec, err := s.d.Registry.ResolveBySerial(ctx, serial)
	if err != nil {
		return PushResult{}, err
	}
	if err := s.d.Registry.AllowPush(ctx, serial); err != nil {
		return PushResult{}, err
	}
	out, changed, err := s.rebuild(ctx, rec)
	if err != nil {
		return PushResult{}, err
	}
	rec.CacheValidator = out.CacheValidator
	rec.UpdatedAt = out.LastModified
	if err := s.d.Notifier.NotifyPassUpdated(ctx, rec); err != nil {
		return PushResult{}, apperr.Infra(err, apperr.StageNotify, "notify_failed", "update notification could not be sent")
	}
	return PushResult{SerialNumber: serial, CacheValidator: out.CacheValidator, Changed: changed}, nil
}

// SignerInfo — сведения о сертификатах подписи
func (s *Service) SignerInfo() SignerInfo {
	certs := s.d.Signer.Certificates()
	if certs == nil {
		return SignerInfo{}
	}
	return SignerInfo{
		PassTypeIdentifier: certs.PassTypeIdentifier,
		TeamIdentifier:     certs.TeamIdentifier,
		Certificates:       certs.Describe(),
	}
}

// rebuild собирает пропуск для существующей записи (в любом статусе) и
// сохраняет валидатор, если содержимое изменилось.
func (s *Service) rebuild(ctx context.Context, rec models.IdentityRecord) (PassBundle, bool, error) {
	entry, err := s.lookup(ctx, rec.CustomerID, rec.OfferID)
	if err != nil {
		return PassBundle{}, false, err
	}
	b, err := s.build(ctx, entry, rec.WalletType, &rec)
	if err != nil {
		return PassBundle{}, false, err
	}
	out := b.bundle
	out.LastModified = rec.UpdatedAt
	if out.CacheValidator == rec.CacheValidator {
		return out, false, nil
	}
	next := rec
	next.CacheValidator = out.CacheValidator
	stored, err := s.persist(ctx, next)
	if err != nil {
		return PassBundle{}, false, err
	}
	out.LastModified = stored.UpdatedAt
	return out, true, nil
}

type assembled struct {
	result passdata.Result
	bundle PassBundle
}

func (b assembled) record(key models.PassKey) models.IdentityRecord {
	id := b.result.Identity
	return models.IdentityRecord{
		CustomerID:          key.CustomerID,
		OfferID:             key.OfferID,
		WalletType:          key.WalletType,
		SerialNumber:        id.SerialNumber,
		AuthenticationToken: id.AuthenticationToken,
		CacheValidator:      b.bundle.CacheValidator,
		Status:              b.result.Status,
		IssuedAt:            id.IssuedAt,
	}
}

// build — Assembler → Asset Pipeline → подпись → упаковка. Ничего не пишет.
func (s *Service) build(ctx context.Context, e catalog.Entry, wallet models.WalletType, existing *models.IdentityRecord) (assembled, error) {
	res, err := s.d.Assembler.Assemble(passdata.Input{
		Customer:   e.Customer,
		Offer:      e.Offer,
		Business:   e.Business,
		Progress:   e.Progress,
		Design:     e.Design,
		WalletType: wallet,
		Existing:   existing,
	})
	if err != nil {
		return assembled{}, err
	}
	set, err := s.d.Assets.Build(ctx, assets.Request{
		Design:       res.Design,
		Offer:        e.Offer,
		Progress:     e.Progress,
		BusinessName: e.Business.Name,
	})
	if err != nil {
		return assembled{}, err
	}
	sealed, err := s.d.Signer.Seal(res.JSON, set)
	if err != nil {
		return assembled{}, err
	}
	data, err := s.d.Packager.Pack(bundle.Contents{
		PassJSON:  res.JSON,
		Manifest:  sealed.ManifestJSON,
		Signature: sealed.Signature,
		Assets:    set,
	})
	if err != nil {
		return assembled{}, err
	}
	return assembled{
		result: res,
		bundle: PassBundle{
			Data:           data,
			SerialNumber:   res.Identity.SerialNumber,
			CacheValidator: sealed.CacheValidator,
			Status:         res.Status,
			Minted:         res.Identity.Minted,
		},
	}, nil
}

// persist пишет в реестр без отмены от клиента, но с таймаутом.
func (s *Service) persist(ctx context.Context, rec models.IdentityRecord) (models.IdentityRecord, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.d.PersistTimeout)
	defer cancel()
	return s.d.Registry.Persist(ctx, rec)
}

func (s *Service) lookup(ctx context.Context, customerID, offerID string) (catalog.Entry, error) {
	e, err := s.d.Catalog.Lookup(ctx, customerID, offerID)
	if errors.Is(err, catalog.ErrNotFound) {
		return e, apperr.Wrap(err, apperr.CategoryNotFound, apperr.StageCatalog, "catalog_not_found", "customer or offer not found")
	}
	if err != nil {
		return e, apperr.Infra(err, apperr.StageCatalog, "catalog_unavailable", "catalog unavailable")
	}
	return e, nil
}
