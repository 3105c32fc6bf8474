package barcode

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const tokenVersion byte = 0x01

// MinSecretSize is the shortest token secret NewTokenSealer accepts.
const MinSecretSize = 16

var (
	hkdfInfoTokenKeys = []byte("walletpass.customer-token.v1")
	nonceDomain       = []byte("walletpass.customer-token.nonce.v1")
)

var ErrInvalidToken = errors.New("invalid customer token")

// CustomerClaims is the reversible content of a customer token.
type CustomerClaims struct {
	CustomerID string
	BusinessID string
	IssuedAt   time.Time
}

// TokenSealer seals customer claims with XChaCha20-Poly1305. The nonce is a
// keyed BLAKE3 of the plaintext, so the same claims always produce the same
// token and a regenerated pass keeps an identical barcode.
type TokenSealer struct {
	aead     cipher.AEAD
	nonceKey []byte
}

func NewTokenSealer(secret []byte) (*TokenSealer, error) {
	if len(secret) < MinSecretSize {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretSize)
	}
	keys := make([]byte, chacha20poly1305.KeySize+32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, hkdfInfoTokenKeys), keys); err != nil {
		return nil, fmt.Errorf("deriving token keys: %w", err)
	}
	aead, err := chacha20poly1305.NewX(keys[:chacha20poly1305.KeySize])
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	return &TokenSealer{aead: aead, nonceKey: keys[chacha20poly1305.KeySize:]}, nil
}

func (s *TokenSealer) Seal(c CustomerClaims) (string, error) {
	if c.CustomerID == "" || c.BusinessID == "" {
		return "", fmt.Errorf("customer and business ids are required")
	}
	if strings.Contains(c.CustomerID, "|") || strings.Contains(c.BusinessID, "|") {
		return "", fmt.Errorf("ids must not contain '|'")
	}
	plaintext := []byte(c.CustomerID + "|" + c.BusinessID + "|" + strconv.FormatInt(c.IssuedAt.Unix(), 10))

	hasher, err := blake3.NewKeyed(s.nonceKey)
	if err != nil {
		return "", fmt.Errorf("nonce hasher: %w", err)
	}
	hasher.Write(nonceDomain)
	hasher.Write(plaintext)
	nonce := hasher.Sum(nil)[:chacha20poly1305.NonceSizeX]

	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+chacha20poly1305.Overhead)
	out = append(out, tokenVersion)
	out = append(out, nonce...)
	out = s.aead.Seal(out, nonce, plaintext, []byte{tokenVersion})
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *TokenSealer) Open(token string) (CustomerClaims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return CustomerClaims{}, ErrInvalidToken
	}
	if len(raw) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead || raw[0] != tokenVersion {
		return CustomerClaims{}, ErrInvalidToken
	}
	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := s.aead.Open(nil, nonce, raw[1+chacha20poly1305.NonceSizeX:], []byte{tokenVersion})
	if err != nil {
		return CustomerClaims{}, ErrInvalidToken
	}
	parts := strings.Split(string(plaintext), "|")
	if len(parts) != 3 {
		return CustomerClaims{}, ErrInvalidToken
	}
	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return CustomerClaims{}, ErrInvalidToken
	}
	return CustomerClaims{CustomerID: parts[0], BusinessID: parts[1], IssuedAt: time.Unix(ts, 0).UTC()}, nil
}
