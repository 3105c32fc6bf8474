package main

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/vbncursed/vkr/pass-service/internal/testutil"
)

// seed-certs выпускает локальный CA и сертификат типа пасса для
// разработки. Кошельки такие пропуска не примут.
func main() {
	var (
		out        string
		passTypeID string
		teamID     string
		password   string
		ttl        time.Duration
	)
	pflag.StringVar(&out, "out", "./certs", "output directory")
	pflag.StringVar(&passTypeID, "pass-type", testutil.PassTypeIdentifier, "pass type identifier")
	pflag.StringVar(&teamID, "team", testutil.TeamIdentifier, "team identifier")
	pflag.StringVar(&password, "p12-password", "", "password for pass.p12")
	pflag.DurationVar(&ttl, "ttl", 365*24*time.Hour, "certificate lifetime")
	pflag.Parse()

	certs, err := testutil.Generate(passTypeID, teamID, time.Now().Add(-time.Hour), ttl)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	p12, err := pkcs12.Modern.Encode(certs.Key, certs.Cert, []*x509.Certificate{certs.CA}, password)
	if err != nil {
		log.Fatalf("p12: %v", err)
	}
	if err := os.MkdirAll(out, 0o700); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	files := map[string][]byte{
		"pass.pem": certs.CertPEM,
		"pass.key": certs.KeyPEM,
		"wwdr.pem": certs.CAPEM,
		"pass.p12": p12,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(out, name), data, 0o600); err != nil {
			log.Fatalf("write %s: %v", name, err)
		}
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("token secret: %v", err)
	}
	log.Printf("wrote dev certificates for %s (team %s) to %s", passTypeID, teamID, out)
	log.Printf("PASS_CERT_PATH=%s PASS_KEY_PATH=%s PASS_CHAIN_PATH=%s",
		filepath.Join(out, "pass.pem"), filepath.Join(out, "pass.key"), filepath.Join(out, "wwdr.pem"))
	log.Printf("TOKEN_SECRET=%s", hex.EncodeToString(secret))
}
