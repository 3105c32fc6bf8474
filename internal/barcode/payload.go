package barcode

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
)

// Delimiter separates the customer token from the offer hash.
const Delimiter = "."

// OfferHashLen is the number of hex characters kept from the offer digest.
const OfferHashLen = 12

// OfferHash is a short one-way digest scanners use to check the offer
// without a database lookup.
func OfferHash(offerID, businessID, salt string) string {
	sum := blake3.Sum256([]byte(offerID + "|" + businessID + "|" + salt))
	return hex.EncodeToString(sum[:])[:OfferHashLen]
}

func VerifyOfferHash(hash, offerID, businessID, salt string) bool {
	want := OfferHash(offerID, businessID, salt)
	return subtle.ConstantTimeCompare([]byte(hash), []byte(want)) == 1
}

// Payload is the two-part barcode message, with an optional fixed prefix.
type Payload struct {
	Prefix        string
	CustomerToken string
	OfferHash     string
}

func (p Payload) Serialize() string {
	return p.Prefix + p.CustomerToken + Delimiter + p.OfferHash
}

// Validate checks structure and that the serialized message is
// representable in enc. It runs before any asset or signing work.
func (p Payload) Validate(enc Encoding) error {
	if p.CustomerToken == "" || p.OfferHash == "" {
		return apperr.Invalid(apperr.StageBarcode, "barcode_incomplete", "customer token and offer hash are required")
	}
	if strings.Contains(p.CustomerToken, Delimiter) || strings.Contains(p.OfferHash, Delimiter) {
		return apperr.Invalid(apperr.StageBarcode, "barcode_delimiter", "barcode parts must not contain the delimiter")
	}
	if err := enc.Check(p.Serialize()); err != nil {
		return apperr.Wrap(err, apperr.CategoryInvalidInput, apperr.StageBarcode, "barcode_encoding",
			fmt.Sprintf("barcode payload is not representable in %s", enc))
	}
	return nil
}

// Parse splits a scanned message back into its parts.
func Parse(message, prefix string) (Payload, error) {
	if !strings.HasPrefix(message, prefix) {
		return Payload{}, fmt.Errorf("barcode message missing prefix %q", prefix)
	}
	rest := strings.TrimPrefix(message, prefix)
	i := strings.LastIndex(rest, Delimiter)
	if i <= 0 || i == len(rest)-1 {
		return Payload{}, fmt.Errorf("malformed barcode message")
	}
	return Payload{Prefix: prefix, CustomerToken: rest[:i], OfferHash: rest[i+1:]}, nil
}
