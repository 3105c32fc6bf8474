package service

import (
	"context"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/assets"
	"github.com/vbncursed/vkr/pass-service/internal/bundle"
	"github.com/vbncursed/vkr/pass-service/internal/catalog"
	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/passdata"
)

// Clock — абстракция времени для тестируемости
type Clock interface {
	Now() time.Time
}

// Catalog — чтение клиента, оффера, прогресса и дизайна
type Catalog interface {
	Lookup(ctx context.Context, customerID, offerID string) (catalog.Entry, error)
}

// Registry — identity-записи пропусков
type Registry interface {
	ResolveIdentity(ctx context.Context, key models.PassKey) (*models.IdentityRecord, error)
	ResolveBySerial(ctx context.Context, serial string) (models.IdentityRecord, error)
	Persist(ctx context.Context, rec models.IdentityRecord) (models.IdentityRecord, error)
	Transition(ctx context.Context, serial string, to models.PassStatus, expiresAt *time.Time) (models.IdentityRecord, error)
	AllowPush(ctx context.Context, serial string) error
}

// Assembler — сборка pass.json
type Assembler interface {
	Assemble(in passdata.Input) (passdata.Result, error)
}

// AssetBuilder — изображения бандла
type AssetBuilder interface {
	Build(ctx context.Context, req assets.Request) (models.AssetSet, error)
}

// Signer — манифест, подпись и валидатор кеша
type Signer interface {
	Seal(passJSON []byte, set models.AssetSet) (crypto.Sealed, error)
	Certificates() *crypto.CertificateBundle
}

// Packager — архив .pkpass
type Packager interface {
	Pack(c bundle.Contents) ([]byte, error)
}

// Notifier — доставка уведомления об обновлении на устройства
type Notifier interface {
	NotifyPassUpdated(ctx context.Context, rec models.IdentityRecord) error
}

// IssueCommand — запрос пропуска для тройки
type IssueCommand struct {
	CustomerID string
	OfferID    string
	WalletType models.WalletType
}

// FetchCommand — запрос кошелька на обновление пропуска
type FetchCommand struct {
	PassTypeIdentifier  string
	SerialNumber        string
	AuthenticationToken string
	IfNoneMatch         string
}

// FetchByTripleCommand — запрос текущего бандла тройки у эмитента
type FetchByTripleCommand struct {
	CustomerID  string
	OfferID     string
	WalletType  models.WalletType
	IfNoneMatch string
}

// ChangeStatusCommand — внешний статус жизненного цикла
type ChangeStatusCommand struct {
	SerialNumber          string
	Status                models.PassStatus
	ScheduledExpirationAt *time.Time
}

// PassBundle — готовый подписанный бандл
type PassBundle struct {
	Data           []byte
	SerialNumber   string
	CacheValidator string
	Status         models.PassStatus
	LastModified   time.Time
	Minted         bool
}

// FetchResult: при NotModified Data пустой
type FetchResult struct {
	NotModified bool
	Bundle      PassBundle
}

type PushResult struct {
	SerialNumber   string
	CacheValidator string
	Changed        bool
}

// SignerInfo — публичные сведения о подписанте для /signer
type SignerInfo struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	Certificates       []crypto.CertInfo
}
