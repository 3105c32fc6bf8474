package passdata

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/barcode"
	"github.com/vbncursed/vkr/pass-service/internal/models"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newAssembler(t *testing.T, mutate func(*Config)) *Assembler {
	t.Helper()
	sealer, err := barcode.NewTokenSealer([]byte("test-secret-test-secret-32bytes!"))
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	cfg := Config{
		PassTypeIdentifier: "pass.com.example.loyalty",
		TeamIdentifier:     "TEAM123456",
		OrganizationName:   "Example Loyalty",
		WebServiceURL:      "https://passes.example.com/wallet",
		BarcodeEncoding:    barcode.EncodingASCII,
		BarcodePrefix:      "LP1:",
		OfferHashSalt:      "salt",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg, sealer, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func baseInput() Input {
	return Input{
		Customer:   models.Customer{ID: "C1", FirstName: "Ada", LastName: "Lovelace"},
		Offer:      models.Offer{ID: "O1", BusinessID: "B1", Title: "Coffee club", StampsRequired: 8, RewardText: "Free flat white"},
		Business:   models.Business{ID: "B1", Name: "Bean There"},
		Progress:   models.Progress{StampsEarned: 3},
		WalletType: models.WalletApple,
	}
}

func field(fields []models.Field, key string) (models.Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return models.Field{}, false
}

func TestAssembleFreshIdentity(t *testing.T) {
	a := newAssembler(t, nil)
	first, err := a.Assemble(baseInput())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	second, err := a.Assemble(baseInput())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !first.Identity.Minted {
		t.Fatalf("expected minted identity")
	}
	if first.Document.SerialNumber == second.Document.SerialNumber {
		t.Fatalf("fresh triples must get distinct serials")
	}
	if first.Document.AuthenticationToken == second.Document.AuthenticationToken {
		t.Fatalf("fresh triples must get distinct tokens")
	}
	if len(first.Identity.AuthenticationToken) != 32 {
		t.Fatalf("token length = %d", len(first.Identity.AuthenticationToken))
	}
	if first.Status != models.StatusActive {
		t.Fatalf("status = %s", first.Status)
	}
}

func TestAssembleReusesExistingIdentity(t *testing.T) {
	a := newAssembler(t, nil)
	in := baseInput()
	in.Existing = &models.IdentityRecord{
		CustomerID: "C1", OfferID: "O1", WalletType: models.WalletApple,
		SerialNumber: "S1", AuthenticationToken: "T1T1T1T1T1T1T1T1T1",
		Status: models.StatusActive, IssuedAt: fixedNow.Add(-time.Hour),
	}
	before, err := a.Assemble(in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	in.Progress.StampsEarned = 4
	after, err := a.Assemble(in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, r := range []Result{before, after} {
		if r.Document.SerialNumber != "S1" || r.Document.AuthenticationToken != "T1T1T1T1T1T1T1T1T1" {
			t.Fatalf("identity not reused: %s / %s", r.Document.SerialNumber, r.Document.AuthenticationToken)
		}
		if r.Identity.Minted {
			t.Fatalf("existing identity reported as minted")
		}
	}
	if before.Document.Barcode.Message != after.Document.Barcode.Message {
		t.Fatalf("barcode must stay stable across progress updates")
	}
	b, _ := field(before.Document.StoreCard.HeaderFields, "stamps")
	c, _ := field(after.Document.StoreCard.HeaderFields, "stamps")
	if b.Value != "3 / 8" || c.Value != "4 / 8" {
		t.Fatalf("progress values = %q, %q", b.Value, c.Value)
	}
	if bytes.Equal(before.JSON, after.JSON) {
		t.Fatalf("document bytes must change with progress")
	}
}

func TestAssembleIsDeterministicForSameInput(t *testing.T) {
	a := newAssembler(t, nil)
	in := baseInput()
	in.Existing = &models.IdentityRecord{SerialNumber: "S1", AuthenticationToken: "T1T1T1T1T1T1T1T1T1", Status: models.StatusActive, IssuedAt: fixedNow}
	x, err := a.Assemble(in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	y, _ := a.Assemble(in)
	if !bytes.Equal(x.JSON, y.JSON) {
		t.Fatalf("identical input must serialize identically")
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, x.JSON); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if !bytes.Equal(compact.Bytes(), x.JSON) {
		t.Fatalf("pass.json must be compact: %s", x.JSON)
	}
}

func TestAssembleDefaults(t *testing.T) {
	a := newAssembler(t, nil)
	in := baseInput()
	in.Customer.FirstName, in.Customer.LastName = "", ""
	in.Offer.StampsRequired = 0
	in.Offer.RewardText = ""
	in.Offer.Title = ""
	res, err := a.Assemble(in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	doc := res.Document
	if f, _ := field(doc.StoreCard.SecondaryFields, "member"); f.Value != DefaultFirstName+" "+DefaultLastName {
		t.Fatalf("member = %q", f.Value)
	}
	if f, _ := field(doc.StoreCard.SecondaryFields, "reward"); f.Value != DefaultRewardText {
		t.Fatalf("reward = %q", f.Value)
	}
	if f, _ := field(doc.StoreCard.HeaderFields, "stamps"); f.Value != "3 / 10" {
		t.Fatalf("stamps = %q", f.Value)
	}
	if doc.BackgroundColor != "rgb(24, 24, 27)" || doc.ForegroundColor != "rgb(250, 250, 250)" || doc.LabelColor != "rgb(161, 161, 170)" {
		t.Fatalf("default palette not applied: %s %s %s", doc.BackgroundColor, doc.ForegroundColor, doc.LabelColor)
	}
	if doc.Description != "Bean There "+DefaultOfferTitle {
		t.Fatalf("description = %q", doc.Description)
	}
}

func TestAssembleDesignColors(t *testing.T) {
	a := newAssembler(t, nil)
	in := baseInput()
	in.Design = &models.Design{BackgroundColor: "#336699", ForegroundColor: "fff", LabelColor: "not-a-color"}
	res, err := a.Assemble(in)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Document.BackgroundColor != "rgb(51, 102, 153)" {
		t.Fatalf("background = %q", res.Document.BackgroundColor)
	}
	if res.Document.ForegroundColor != "rgb(255, 255, 255)" {
		t.Fatalf("foreground = %q", res.Document.ForegroundColor)
	}
	if res.Document.LabelColor != FormatColor(DefaultLabel) {
		t.Fatalf("invalid label colour must fall back, got %q", res.Document.LabelColor)
	}
}

func TestAssembleRequiresBusinessID(t *testing.T) {
	a := newAssembler(t, nil)
	in := baseInput()
	in.Business.ID = ""
	_, err := a.Assemble(in)
	ae, ok := apperr.As(err)
	if !ok || ae.Code != "business_id_required" || ae.Category != apperr.CategoryInvalidInput {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAssembleBarcodeEncodingGuard(t *testing.T) {
	a := newAssembler(t, func(c *Config) { c.BarcodePrefix = "Café:" })
	_, err := a.Assemble(baseInput())
	ae, ok := apperr.As(err)
	if !ok || ae.Code != "barcode_encoding" || ae.Stage != apperr.StageBarcode {
		t.Fatalf("expected barcode encoding error, got %v", err)
	}

	latin := newAssembler(t, func(c *Config) {
		c.BarcodePrefix = "Café:"
		c.BarcodeEncoding = barcode.EncodingLatin1
	})
	res, err := latin.Assemble(baseInput())
	if err != nil {
		t.Fatalf("latin1 should accept e-acute: %v", err)
	}
	if res.Document.Barcode.MessageEncoding != "iso-8859-1" {
		t.Fatalf("messageEncoding = %q", res.Document.Barcode.MessageEncoding)
	}
}

func TestAssembleBarcodeVerifiable(t *testing.T) {
	a := newAssembler(t, nil)
	res, err := a.Assemble(baseInput())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	doc := res.Document
	if doc.Barcode == nil || len(doc.Barcodes) != 1 || doc.Barcodes[0] != *doc.Barcode {
		t.Fatalf("singular and plural barcode must both be present and equal")
	}
	p, err := barcode.Parse(doc.Barcode.Message, "LP1:")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !barcode.VerifyOfferHash(p.OfferHash, "O1", "B1", "salt") {
		t.Fatalf("offer hash does not verify")
	}
	if doc.Barcode.AltText != "A.L." {
		t.Fatalf("altText = %q", doc.Barcode.AltText)
	}
}

func TestLifecycleAnnotations(t *testing.T) {
	exp := fixedNow.Add(30 * 24 * time.Hour)
	tests := []struct {
		status     models.PassStatus
		expiresAt  *time.Time
		voided     bool
		expiration string
	}{
		{models.StatusActive, &exp, false, ""},
		{models.StatusCompleted, &exp, false, exp.Format(time.RFC3339)},
		{models.StatusCompleted, nil, false, ""},
		{models.StatusExpired, &exp, true, ""},
		{models.StatusExpired, nil, true, ""},
		{models.StatusRevoked, &exp, true, ""},
		{models.StatusRevoked, nil, true, ""},
	}
	a := newAssembler(t, nil)
	for _, tt := range tests {
		in := baseInput()
		in.Existing = &models.IdentityRecord{
			SerialNumber: "S1", AuthenticationToken: "T1T1T1T1T1T1T1T1T1",
			Status: tt.status, ScheduledExpirationAt: tt.expiresAt, IssuedAt: fixedNow,
		}
		res, err := a.Assemble(in)
		if err != nil {
			t.Fatalf("%s: %v", tt.status, err)
		}
		if res.Document.Voided != tt.voided || res.Document.ExpirationDate != tt.expiration {
			t.Fatalf("%s: voided=%v expirationDate=%q", tt.status, res.Document.Voided, res.Document.ExpirationDate)
		}
	}
}

func TestStaticPassOmitsUpdateFields(t *testing.T) {
	a := newAssembler(t, func(c *Config) { c.WebServiceURL = "" })
	res, err := a.Assemble(baseInput())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(res.JSON, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["webServiceURL"]; ok {
		t.Fatalf("static pass must not carry webServiceURL")
	}
	if _, ok := m["authenticationToken"]; ok {
		t.Fatalf("static pass must not carry authenticationToken")
	}
	if res.Identity.AuthenticationToken == "" {
		t.Fatalf("identity still needs a token for the registry")
	}
}

func TestValidateDocumentRejectsMissingKeys(t *testing.T) {
	if err := ValidateDocument([]byte(`{"formatVersion":1}`)); err == nil {
		t.Fatalf("expected schema error")
	}
}
