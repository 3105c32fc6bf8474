package crypto

import (
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/smallstep/pkcs7"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/models"
)

// Engine signs manifests with one immutable CertificateBundle.
type Engine struct {
	certs *CertificateBundle
}

func NewEngine(certs *CertificateBundle) (*Engine, error) {
	if certs == nil || certs.Key == nil || certs.Certificate == nil {
		return nil, apperr.New(apperr.CategoryFatal, apperr.StageSign, "certificate_missing", "signing certificate is not loaded")
	}
	return &Engine{certs: certs}, nil
}

func (e *Engine) Certificates() *CertificateBundle { return e.certs }

// Sealed is the signed form of one pass.
type Sealed struct {
	Manifest       Manifest
	ManifestJSON   []byte
	Signature      []byte
	CacheValidator string
}

// Seal hashes pass.json and the assets, signs the manifest and derives
// the cache validator.
func (e *Engine) Seal(passJSON []byte, assets models.AssetSet) (Sealed, error) {
	m, err := BuildManifest(passJSON, assets)
	if err != nil {
		return Sealed{}, err
	}
	raw, err := m.Bytes()
	if err != nil {
		return Sealed{}, apperr.Infra(err, apperr.StageSign, "manifest_marshal", "manifest could not be serialized")
	}
	sig, err := e.Sign(raw)
	if err != nil {
		return Sealed{}, err
	}
	etag, err := CacheValidator(raw)
	if err != nil {
		return Sealed{}, apperr.Infra(err, apperr.StageSign, "cache_validator", "cache validator could not be computed")
	}
	return Sealed{Manifest: m, ManifestJSON: raw, Signature: sig, CacheValidator: etag}, nil
}

// Sign produces a detached DER PKCS#7 SignedData over manifest with
// SHA-256, the signer and chain certificates and a signingTime attribute.
func (e *Engine) Sign(manifest []byte) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, apperr.Infra(err, apperr.StageSign, "sign_init", "signature could not be created")
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSignerChain(e.certs.Certificate, e.certs.Key, e.certs.Chain, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, apperr.Infra(err, apperr.StageSign, "sign_failed", "manifest could not be signed")
	}
	sd.Detach()
	der, err := sd.Finish()
	if err != nil {
		return nil, apperr.Infra(err, apperr.StageSign, "sign_finish", "signature could not be encoded")
	}
	return der, nil
}

var ErrSignatureInvalid = errors.New("signature does not verify")

// VerifySignature checks a detached signature against manifest. With
// roots the signer chain is verified too, at the embedded signing time.
func VerifySignature(manifest, signature []byte, roots *x509.CertPool) (SignatureInfo, error) {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return SignatureInfo{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	p7.Content = manifest
	if roots != nil {
		err = p7.VerifyWithChain(roots)
	} else {
		err = p7.Verify()
	}
	if err != nil {
		return SignatureInfo{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	info := SignatureInfo{Certificates: len(p7.Certificates)}
	if signer := p7.GetOnlySigner(); signer != nil {
		info.Signer = signer.Subject.String()
	}
	var signedAt time.Time
	if err := p7.UnmarshalSignedAttribute(pkcs7.OIDAttributeSigningTime, &signedAt); err == nil {
		info.SigningTime = signedAt.UTC()
	}
	return info, nil
}

// SignatureInfo summarizes a verified signature.
type SignatureInfo struct {
	Signer       string
	SigningTime  time.Time
	Certificates int
}
