// Package passdata builds the canonical pass.json document from catalog
// data, pass identity and design.
package passdata

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/barcode"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/util"
)

// AuthTokenBytes is the entropy of a freshly minted authentication token.
const AuthTokenBytes = 20

// Config carries the issuer-wide values written into every pass.
type Config struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	OrganizationName   string
	// WebServiceURL enables in-place updates. When empty the pass is static
	// and carries no authentication token.
	WebServiceURL   string
	BarcodeEncoding barcode.Encoding
	BarcodePrefix   string
	OfferHashSalt   string
}

// Input is everything one assembly needs. Existing is nil for a triple
// that has never been issued.
type Input struct {
	Customer   models.Customer
	Offer      models.Offer
	Business   models.Business
	Progress   models.Progress
	Design     *models.Design
	WalletType models.WalletType
	Existing   *models.IdentityRecord
}

// Identity is the serial/token pair written into the document.
type Identity struct {
	SerialNumber        string
	AuthenticationToken string
	IssuedAt            time.Time
	Minted              bool
}

type Result struct {
	Document models.PassDocument
	// JSON is the compact serialization. It is the only form that may be
	// hashed or packaged.
	JSON     []byte
	Identity Identity
	Design   ResolvedDesign
	Status   models.PassStatus
}

type Assembler struct {
	cfg    Config
	sealer *barcode.TokenSealer
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Assembler)

func WithClock(now func() time.Time) Option { return func(a *Assembler) { a.now = now } }

func WithLogger(l *slog.Logger) Option { return func(a *Assembler) { a.logger = l } }

func New(cfg Config, sealer *barcode.TokenSealer, opts ...Option) (*Assembler, error) {
	if sealer == nil {
		return nil, fmt.Errorf("passdata: token sealer is required")
	}
	if cfg.PassTypeIdentifier == "" || cfg.TeamIdentifier == "" {
		return nil, fmt.Errorf("passdata: pass type and team identifiers are required")
	}
	if cfg.BarcodeEncoding == "" {
		cfg.BarcodeEncoding = barcode.EncodingASCII
	}
	a := &Assembler{cfg: cfg, sealer: sealer, now: time.Now, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Assembler) Config() Config { return a.cfg }

// Assemble produces the pass document. The barcode is built and checked
// first so an unencodable payload fails before any other work.
func (a *Assembler) Assemble(in Input) (Result, error) {
	if strings.TrimSpace(in.Business.ID) == "" {
		return Result{}, apperr.Invalid(apperr.StageAssemble, "business_id_required", "business identifier is required")
	}
	if strings.TrimSpace(in.Customer.ID) == "" || strings.TrimSpace(in.Offer.ID) == "" {
		return Result{}, apperr.Invalid(apperr.StageAssemble, "ids_required", "customer and offer identifiers are required")
	}

	id, status, expiresAt, err := a.identity(in)
	if err != nil {
		return Result{}, err
	}

	payload, err := a.barcodePayload(in, id.IssuedAt)
	if err != nil {
		return Result{}, err
	}

	design := ResolveDesign(in.Design)
	for _, f := range design.Fallbacks {
		a.logger.Warn("design value invalid, using default", "field", f, "offer_id", in.Offer.ID)
	}

	required := in.Offer.StampsRequired
	if required <= 0 {
		a.logger.Warn("offer has no stamp target, using default",
			"offer_id", in.Offer.ID, "default", DefaultStampsRequired)
		required = DefaultStampsRequired
	}
	earned := max(in.Progress.StampsEarned, 0)

	name := util.DisplayName(in.Customer.FirstName, in.Customer.LastName, DefaultFirstName, DefaultLastName)
	title := util.FirstNonEmpty(in.Offer.Title, DefaultOfferTitle)
	org := util.FirstNonEmpty(in.Business.Name, a.cfg.OrganizationName)

	doc := models.PassDocument{
		FormatVersion:      models.PassFormatVersion,
		PassTypeIdentifier: a.cfg.PassTypeIdentifier,
		SerialNumber:       id.SerialNumber,
		TeamIdentifier:     a.cfg.TeamIdentifier,
		OrganizationName:   org,
		Description:        org + " " + title,
		LogoText:           util.FirstNonEmpty(design.LogoText, org),
		BackgroundColor:    FormatColor(design.Palette.Background),
		ForegroundColor:    FormatColor(design.Palette.Foreground),
		LabelColor:         FormatColor(design.Palette.Label),
		StoreCard:          fieldGroups(in, name, title, earned, required, status),
	}

	bc := models.Barcode{
		Format:          models.BarcodeFormatQR,
		Message:         payload.Serialize(),
		MessageEncoding: a.cfg.BarcodeEncoding.MessageEncoding(),
		AltText:         util.Initials(name),
	}
	doc.Barcode = &bc
	doc.Barcodes = []models.Barcode{bc}

	if a.cfg.WebServiceURL != "" {
		doc.WebServiceURL = a.cfg.WebServiceURL
		doc.AuthenticationToken = id.AuthenticationToken
	}

	applyLifecycle(&doc, status, expiresAt)

	raw, err := doc.CompactJSON()
	if err != nil {
		return Result{}, apperr.Wrap(err, apperr.CategoryInfrastructure, apperr.StageAssemble, "marshal", "pass document could not be serialized")
	}
	if err := ValidateDocument(raw); err != nil {
		return Result{}, err
	}
	return Result{Document: doc, JSON: raw, Identity: id, Design: design, Status: status}, nil
}

func (a *Assembler) identity(in Input) (Identity, models.PassStatus, *time.Time, error) {
	if rec := in.Existing; rec != nil {
		if rec.SerialNumber == "" || rec.AuthenticationToken == "" {
			return Identity{}, "", nil, apperr.Invalid(apperr.StageAssemble, "identity_incomplete", "existing identity has no serial or token")
		}
		status := rec.Status
		if status == "" {
			status = models.StatusActive
		}
		return Identity{
			SerialNumber:        rec.SerialNumber,
			AuthenticationToken: rec.AuthenticationToken,
			IssuedAt:            rec.IssuedAt.UTC(),
		}, status, rec.ScheduledExpirationAt, nil
	}
	now := a.now().UTC()
	token, err := MintAuthToken()
	if err != nil {
		return Identity{}, "", nil, apperr.Infra(err, apperr.StageAssemble, "token_mint", "could not generate authentication token")
	}
	return Identity{
		SerialNumber:        MintSerial(in.Customer.ID, in.Offer.ID, now),
		AuthenticationToken: token,
		IssuedAt:            now,
		Minted:              true,
	}, models.StatusActive, nil, nil
}

func (a *Assembler) barcodePayload(in Input, issuedAt time.Time) (barcode.Payload, error) {
	token, err := a.sealer.Seal(barcode.CustomerClaims{
		CustomerID: in.Customer.ID,
		BusinessID: in.Business.ID,
		IssuedAt:   issuedAt,
	})
	if err != nil {
		return barcode.Payload{}, apperr.Wrap(err, apperr.CategoryInvalidInput, apperr.StageBarcode, "customer_token", "customer token could not be built")
	}
	p := barcode.Payload{
		Prefix:        a.cfg.BarcodePrefix,
		CustomerToken: token,
		OfferHash:     barcode.OfferHash(in.Offer.ID, in.Business.ID, a.cfg.OfferHashSalt),
	}
	if err := p.Validate(a.cfg.BarcodeEncoding); err != nil {
		return barcode.Payload{}, err
	}
	return p, nil
}

func fieldGroups(in Input, name, title string, earned, required int, status models.PassStatus) *models.FieldGroups {
	remaining := required - earned
	toGo := strconv.Itoa(max(remaining, 0))
	if remaining <= 0 {
		toGo = "Reward ready"
	}
	g := &models.FieldGroups{
		HeaderFields: []models.Field{{
			Key:           "stamps",
			Label:         "STAMPS",
			Value:         fmt.Sprintf("%d / %d", min(earned, required), required),
			TextAlignment: models.AlignRight,
			ChangeMessage: "Stamps: %@",
		}},
		SecondaryFields: []models.Field{
			{Key: "member", Label: "MEMBER", Value: name, TextAlignment: models.AlignLeft},
			{Key: "reward", Label: "REWARD", Value: util.FirstNonEmpty(in.Offer.RewardText, DefaultRewardText), TextAlignment: models.AlignRight},
		},
		AuxiliaryFields: []models.Field{
			{Key: "remaining", Label: "TO GO", Value: toGo, TextAlignment: models.AlignLeft, ChangeMessage: "%@"},
			{Key: "status", Label: "STATUS", Value: statusLabel(status), TextAlignment: models.AlignRight},
		},
	}
	if in.Progress.RewardsRedeemed > 0 {
		g.AuxiliaryFields = append(g.AuxiliaryFields, models.Field{
			Key: "redeemed", Label: "REDEEMED", Value: strconv.Itoa(in.Progress.RewardsRedeemed), TextAlignment: models.AlignNatural,
		})
	}

	back := []models.Field{{Key: "offer", Label: "Offer", Value: title}}
	if d := strings.TrimSpace(in.Offer.Description); d != "" {
		back = append(back, models.Field{Key: "details", Label: "Details", Value: d})
	}
	if terms := strings.TrimSpace(in.Offer.Terms); terms != "" {
		back = append(back, models.Field{Key: "terms", Label: "Terms & conditions", Value: terms})
	}
	if !in.Progress.UpdatedAt.IsZero() {
		back = append(back, models.Field{Key: "updated", Label: "Last stamp", Value: in.Progress.UpdatedAt.UTC().Format("2006-01-02 15:04 MST")})
	}
	g.BackFields = back
	return g
}

func statusLabel(s models.PassStatus) string {
	switch s {
	case models.StatusCompleted:
		return "Completed"
	case models.StatusExpired:
		return "Expired"
	case models.StatusRevoked:
		return "Revoked"
	}
	return "Active"
}

// applyLifecycle projects the external status onto voided/expirationDate.
// Only a completed pass with a scheduled expiration carries a date.
func applyLifecycle(doc *models.PassDocument, status models.PassStatus, expiresAt *time.Time) {
	if status.Voided() {
		doc.Voided = true
	}
	if expiresAt != nil && status == models.StatusCompleted {
		doc.ExpirationDate = expiresAt.UTC().Format(time.RFC3339)
	}
}

// MintSerial makes a serial that support staff can trace back to the offer
// and customer, made unique by time and a random suffix.
func MintSerial(customerID, offerID string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s-%s", util.ShortID(offerID, 8), util.ShortID(customerID, 8), now.UTC().Format("20060102150405"), suffix)
}

// MintAuthToken generates an opaque token: unpadded base32 of random bytes.
func MintAuthToken() (string, error) {
	raw := make([]byte, AuthTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}
