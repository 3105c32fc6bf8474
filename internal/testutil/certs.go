// Package testutil builds throwaway signing material for tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/vbncursed/vkr/pass-service/internal/crypto"
)

const (
	PassTypeIdentifier = "pass.com.example.loyalty"
	TeamIdentifier     = "TEAM123456"
)

// Certs is a CA (standing in for WWDR) and a pass type certificate it
// issued.
type Certs struct {
	CA      *x509.Certificate
	CAKey   *rsa.PrivateKey
	Cert    *x509.Certificate
	Key     *rsa.PrivateKey
	Bundle  *crypto.CertificateBundle
	CertPEM []byte
	KeyPEM  []byte
	CAPEM   []byte
}

// Roots returns a pool holding only the CA.
func (c *Certs) Roots() *x509.CertPool {
	p := x509.NewCertPool()
	p.AddCert(c.CA)
	return p
}

var (
	once   sync.Once
	shared *Certs
	genErr error
)

// SigningCerts returns a process-wide set; RSA key generation is slow.
func SigningCerts(t testing.TB) *Certs {
	t.Helper()
	once.Do(func() {
		shared, genErr = Generate(PassTypeIdentifier, TeamIdentifier, time.Now().Add(-time.Hour), 24*time.Hour)
	})
	if genErr != nil {
		t.Fatalf("generate certs: %v", genErr)
	}
	return shared
}

// Generate creates a CA and a signer valid from notBefore for ttl.
func Generate(passTypeID, teamID string, notBefore time.Time, ttl time.Duration) (*Certs, error) {
	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test WWDR CA", Organization: []string{"Example"}},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(10 * ttl),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, err
	}
	ca, err := x509.ParseCertificate(caDER)
	if err != nil {
		return nil, err
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			CommonName:         "Pass Type ID: " + passTypeID,
			OrganizationalUnit: []string{teamID},
			ExtraNames:         []pkix.AttributeTypeAndValue{{Type: asn1.ObjectIdentifier(crypto.OIDUserID), Value: passTypeID}},
		},
		NotBefore:   notBefore,
		NotAfter:    notBefore.Add(ttl),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca, &key.PublicKey, caKey)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return &Certs{
		CA:    ca,
		CAKey: caKey,
		Cert:  cert,
		Key:   key,
		Bundle: &crypto.CertificateBundle{
			Key:                key,
			Certificate:        cert,
			Chain:              []*x509.Certificate{ca},
			PassTypeIdentifier: passTypeID,
			TeamIdentifier:     teamID,
		},
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		CAPEM:   pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER}),
	}, nil
}
