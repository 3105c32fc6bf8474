package bundle_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/bundle"
	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/testutil"
)

func sealed(t *testing.T) (bundle.Contents, *testutil.Certs) {
	t.Helper()
	certs := testutil.SigningCerts(t)
	e, err := crypto.NewEngine(certs.Bundle)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	pass := []byte(`{"formatVersion":1,"serialNumber":"S1"}`)
	set := models.AssetSet{
		models.FileStrip:  []byte("strip"),
		models.FileIcon:   []byte("icon"),
		models.FileIcon2x: []byte("icon2x"),
	}
	s, err := e.Seal(pass, set)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return bundle.Contents{PassJSON: pass, Manifest: s.ManifestJSON, Signature: s.Signature, Assets: set}, certs
}

func TestPackRoundTripVerifies(t *testing.T) {
	c, certs := sealed(t)
	data, err := bundle.Pack(c)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	b, err := bundle.Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := []string{models.FilePass, models.FileIcon, models.FileIcon2x, models.FileStrip, models.FileManifest, models.FileSignature}
	if len(b.Order) != len(want) {
		t.Fatalf("order = %v", b.Order)
	}
	for i := range want {
		if b.Order[i] != want[i] {
			t.Fatalf("order = %v, want %v", b.Order, want)
		}
	}
	if !bytes.Equal(b.PassJSON(), c.PassJSON) || !bytes.Equal(b.Files[models.FileManifest], c.Manifest) {
		t.Fatalf("packaged bytes must equal the hashed bytes")
	}
	if _, err := b.Verify(certs.Roots()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestPackIsDeterministic(t *testing.T) {
	c, _ := sealed(t)
	a, _ := bundle.Pack(c)
	b, _ := bundle.Pack(c)
	if !bytes.Equal(a, b) {
		t.Fatalf("identical contents must give identical archives")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	c, _ := sealed(t)

	extra := c
	extra.Assets = models.AssetSet{models.FileLogo: []byte("logo")}
	for k, v := range c.Assets {
		extra.Assets[k] = v
	}
	data, _ := bundle.Pack(extra)
	b, _ := bundle.Open(data)
	if _, err := b.Verify(nil); !errors.Is(err, bundle.ErrManifestKeys) {
		t.Fatalf("extra file: got %v", err)
	}

	changed := c
	changed.PassJSON = []byte(`{"formatVersion":1,"serialNumber":"S2"}`)
	data, _ = bundle.Pack(changed)
	b, _ = bundle.Open(data)
	if _, err := b.Verify(nil); !errors.Is(err, bundle.ErrDigestMismatch) {
		t.Fatalf("changed pass.json: got %v", err)
	}
}

func TestWriteRequiresSignedParts(t *testing.T) {
	_, err := bundle.Pack(bundle.Contents{PassJSON: []byte("{}")})
	if apperr.StageOf(err) != apperr.StagePackage {
		t.Fatalf("got %v", err)
	}
	if _, err := bundle.Open([]byte("not a zip")); !errors.Is(err, bundle.ErrNotBundle) {
		t.Fatalf("got %v", err)
	}
}
