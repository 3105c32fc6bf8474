package crypto

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// OIDUserID is the subject attribute that carries the pass type identifier.
var OIDUserID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}

var (
	ErrKeyMismatch       = errors.New("signer key does not match certificate")
	ErrCertNotYetValid   = errors.New("signer certificate is not yet valid")
	ErrCertExpired       = errors.New("signer certificate has expired")
	ErrPassTypeMismatch  = errors.New("certificate pass type identifier mismatch")
	ErrTeamMismatch      = errors.New("certificate team identifier mismatch")
	ErrChainMissing      = errors.New("chain certificate is missing")
	ErrNoCertificateData = errors.New("no certificate source configured")
)

// CertificateBundle — ключ и сертификаты подписи. После загрузки не
// изменяется и разделяется всеми запросами.
type CertificateBundle struct {
	Key                crypto.Signer
	Certificate        *x509.Certificate
	Chain              []*x509.Certificate
	PassTypeIdentifier string
	TeamIdentifier     string
}

// LoadOptions: либо P12Path, либо тройка PEM-файлов.
type LoadOptions struct {
	P12Path     string
	P12Password string
	CertPath    string
	KeyPath     string
	ChainPath   string
}

// LoadCertificateBundle читает сертификаты с диска.
func LoadCertificateBundle(opts LoadOptions) (*CertificateBundle, error) {
	switch {
	case opts.P12Path != "":
		data, err := os.ReadFile(opts.P12Path)
		if err != nil {
			return nil, fmt.Errorf("read p12: %w", err)
		}
		b, err := ParsePKCS12(data, opts.P12Password)
		if err != nil {
			return nil, err
		}
		if len(b.Chain) == 0 && opts.ChainPath != "" {
			chainPEM, err := os.ReadFile(opts.ChainPath)
			if err != nil {
				return nil, fmt.Errorf("read chain: %w", err)
			}
			if b.Chain, err = parseCertificates(chainPEM); err != nil {
				return nil, fmt.Errorf("parse chain: %w", err)
			}
		}
		return b, nil
	case opts.CertPath != "" && opts.KeyPath != "":
		certPEM, err := os.ReadFile(opts.CertPath)
		if err != nil {
			return nil, fmt.Errorf("read cert: %w", err)
		}
		keyPEM, err := os.ReadFile(opts.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		var chainPEM []byte
		if opts.ChainPath != "" {
			if chainPEM, err = os.ReadFile(opts.ChainPath); err != nil {
				return nil, fmt.Errorf("read chain: %w", err)
			}
		}
		return ParsePEM(certPEM, keyPEM, chainPEM)
	}
	return nil, ErrNoCertificateData
}

// ParsePKCS12 разбирает .p12, экспортированный из Keychain.
func ParsePKCS12(data []byte, password string) (*CertificateBundle, error) {
	key, cert, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("decode p12: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("p12 key type %T cannot sign", key)
	}
	return newBundle(signer, cert, chain), nil
}

// ParsePEM разбирает сертификат, ключ (PKCS#8, PKCS#1 или SEC1) и цепочку.
func ParsePEM(certPEM, keyPEM, chainPEM []byte) (*CertificateBundle, error) {
	certs, err := parseCertificates(certPEM)
	if err != nil {
		return nil, fmt.Errorf("parse cert: %w", err)
	}
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}
	chain := certs[1:]
	if len(chainPEM) > 0 {
		extra, err := parseCertificates(chainPEM)
		if err != nil {
			return nil, fmt.Errorf("parse chain: %w", err)
		}
		chain = append(chain, extra...)
	}
	return newBundle(key, certs[0], chain), nil
}

func newBundle(key crypto.Signer, cert *x509.Certificate, chain []*x509.Certificate) *CertificateBundle {
	b := &CertificateBundle{Key: key, Certificate: cert, Chain: chain}
	b.PassTypeIdentifier = subjectUserID(cert)
	if len(cert.Subject.OrganizationalUnit) > 0 {
		b.TeamIdentifier = cert.Subject.OrganizationalUnit[0]
	}
	return b
}

// Validate проверяет пару ключ/сертификат, срок действия, наличие цепочки
// и, если заданы, идентификаторы типа пасса и команды.
func (b *CertificateBundle) Validate(now time.Time, passTypeID, teamID string) error {
	if b == nil || b.Key == nil || b.Certificate == nil {
		return ErrNoCertificateData
	}
	pub, ok := b.Key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(b.Certificate.PublicKey) {
		return ErrKeyMismatch
	}
	if now.Before(b.Certificate.NotBefore) {
		return ErrCertNotYetValid
	}
	if now.After(b.Certificate.NotAfter) {
		return fmt.Errorf("%w: not after %s", ErrCertExpired, b.Certificate.NotAfter.UTC().Format(time.RFC3339))
	}
	if len(b.Chain) == 0 {
		return ErrChainMissing
	}
	if passTypeID != "" && b.PassTypeIdentifier != passTypeID {
		return fmt.Errorf("%w: certificate has %q, configured %q", ErrPassTypeMismatch, b.PassTypeIdentifier, passTypeID)
	}
	if teamID != "" && b.TeamIdentifier != teamID {
		return fmt.Errorf("%w: certificate has %q, configured %q", ErrTeamMismatch, b.TeamIdentifier, teamID)
	}
	return nil
}

// CertInfo — публичные сведения о сертификате для /signer.
type CertInfo struct {
	Subject           string
	Issuer            string
	SerialNumber      string
	FingerprintSHA256 string
	NotBefore         time.Time
	NotAfter          time.Time
}

// Describe возвращает сведения о подписывающем сертификате и цепочке.
func (b *CertificateBundle) Describe() []CertInfo {
	out := make([]CertInfo, 0, 1+len(b.Chain))
	for _, c := range append([]*x509.Certificate{b.Certificate}, b.Chain...) {
		sum := sha256.Sum256(c.Raw)
		out = append(out, CertInfo{
			Subject:           c.Subject.String(),
			Issuer:            c.Issuer.String(),
			SerialNumber:      c.SerialNumber.Text(16),
			FingerprintSHA256: hex.EncodeToString(sum[:]),
			NotBefore:         c.NotBefore.UTC(),
			NotAfter:          c.NotAfter.UTC(),
		})
	}
	return out
}

func subjectUserID(cert *x509.Certificate) string {
	for _, atv := range cert.Subject.Names {
		if atv.Type.Equal(OIDUserID) {
			if s, ok := atv.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var out []*x509.Certificate
	rest := bytes.TrimSpace(data)
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		// DER без PEM-обёртки (так Apple отдаёт WWDR)
		c, err := x509.ParseCertificate(data)
		if err != nil {
			return nil, errors.New("no certificate found")
		}
		out = append(out, c)
	}
	return out, nil
}

func parsePrivateKey(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("key: no PEM block")
	}
	if k, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if s, ok := k.(crypto.Signer); ok {
			return s, nil
		}
		return nil, fmt.Errorf("key type %T cannot sign", k)
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	return nil, errors.New("key: unsupported private key format")
}

var (
	_ crypto.Signer = (*rsa.PrivateKey)(nil)
	_ crypto.Signer = (*ecdsa.PrivateKey)(nil)
)
