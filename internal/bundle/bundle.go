// Package bundle writes and reads the .pkpass archive.
package bundle

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/models"
)

// ContentType is the media type of a pass bundle.
const ContentType = "application/vnd.apple.pkpass"

// ModTime is stamped on every entry so identical contents give identical
// archives.
var ModTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// MaxEntryBytes bounds a single entry when reading a bundle.
const MaxEntryBytes = 8 << 20

// Contents are the exact bytes that were hashed and signed.
type Contents struct {
	PassJSON  []byte
	Manifest  []byte
	Signature []byte
	Assets    models.AssetSet
}

// Packager writes bundles. Level is a flate level; zero means default.
type Packager struct {
	Level int
}

// Order returns the entry names in archive order.
func (c Contents) Order() []string {
	out := make([]string, 0, len(c.Assets)+3)
	out = append(out, models.FilePass)
	out = append(out, c.Assets.Names()...)
	return append(out, models.FileManifest, models.FileSignature)
}

func (c Contents) entry(name string) []byte {
	switch name {
	case models.FilePass:
		return c.PassJSON
	case models.FileManifest:
		return c.Manifest
	case models.FileSignature:
		return c.Signature
	}
	return c.Assets[name]
}

func (p Packager) Write(w io.Writer, c Contents) error {
	if len(c.PassJSON) == 0 || len(c.Manifest) == 0 || len(c.Signature) == 0 {
		return apperr.Invalid(apperr.StagePackage, "bundle_incomplete", "pass.json, manifest and signature are required")
	}
	level := p.Level
	if level == 0 {
		level = flate.DefaultCompression
	}
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	for _, name := range c.Order() {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: ModTime})
		if err != nil {
			return apperr.Infra(err, apperr.StagePackage, "archive_entry", "bundle entry could not be created")
		}
		if _, err := fw.Write(c.entry(name)); err != nil {
			return apperr.Infra(err, apperr.StagePackage, "archive_write", "bundle entry could not be written")
		}
	}
	if err := zw.Close(); err != nil {
		return apperr.Infra(err, apperr.StagePackage, "archive_close", "bundle could not be finalized")
	}
	return nil
}

// Pack writes the bundle into memory.
func (p Packager) Pack(c Contents) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Pack(c Contents) ([]byte, error) { return Packager{}.Pack(c) }

// Bundle is an opened archive.
type Bundle struct {
	Files map[string][]byte
	Order []string
}

var (
	ErrNotBundle       = errors.New("not a pass bundle")
	ErrManifestMissing = errors.New("bundle has no manifest")
	ErrManifestKeys    = errors.New("manifest keys do not match bundle files")
	ErrDigestMismatch  = errors.New("file digest does not match manifest")
)

// Open reads an archive produced by Packager or by any other tool.
func Open(data []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotBundle, err)
	}
	b := &Bundle{Files: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		body, err := io.ReadAll(io.LimitReader(rc, MaxEntryBytes+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if len(body) > MaxEntryBytes {
			return nil, fmt.Errorf("%w: entry %s too large", ErrNotBundle, f.Name)
		}
		b.Files[f.Name] = body
		b.Order = append(b.Order, f.Name)
	}
	if _, ok := b.Files[models.FilePass]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrNotBundle, models.FilePass)
	}
	return b, nil
}

func (b *Bundle) PassJSON() []byte { return b.Files[models.FilePass] }

func (b *Bundle) Document() (models.PassDocument, error) {
	var doc models.PassDocument
	err := json.Unmarshal(b.PassJSON(), &doc)
	return doc, err
}

func (b *Bundle) Manifest() (crypto.Manifest, error) {
	raw, ok := b.Files[models.FileManifest]
	if !ok {
		return nil, ErrManifestMissing
	}
	var m crypto.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Verify re-hashes every entry against the manifest, checks that the
// manifest covers exactly the bundle's files and verifies the signature.
// roots may be nil to skip chain validation.
func (b *Bundle) Verify(roots *x509.CertPool) (crypto.SignatureInfo, error) {
	m, err := b.Manifest()
	if err != nil {
		return crypto.SignatureInfo{}, err
	}
	var files []string
	for name := range b.Files {
		if name != models.FileManifest && name != models.FileSignature {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	keys := m.Names()
	if len(keys) != len(files) {
		return crypto.SignatureInfo{}, fmt.Errorf("%w: manifest %v, files %v", ErrManifestKeys, keys, files)
	}
	for i := range keys {
		if keys[i] != files[i] {
			return crypto.SignatureInfo{}, fmt.Errorf("%w: manifest %v, files %v", ErrManifestKeys, keys, files)
		}
		if !m.Matches(keys[i], b.Files[keys[i]]) {
			return crypto.SignatureInfo{}, fmt.Errorf("%w: %s", ErrDigestMismatch, keys[i])
		}
	}
	return crypto.VerifySignature(b.Files[models.FileManifest], b.Files[models.FileSignature], roots)
}
