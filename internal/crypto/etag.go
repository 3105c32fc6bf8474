package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gowebpki/jcs"
)

// CacheValidatorLen is the number of hex characters kept from the digest.
const CacheValidatorLen = 16

// CacheValidator derives the quoted ETag from the manifest. The manifest
// is canonicalized (RFC 8785) first, so key order and whitespace never
// change the value.
func CacheValidator(manifestJSON []byte) (string, error) {
	canon, err := jcs.Transform(manifestJSON)
	if err != nil {
		return "", fmt.Errorf("canonicalize manifest: %w", err)
	}
	sum := sha256.Sum256(canon)
	return `"` + hex.EncodeToString(sum[:])[:CacheValidatorLen] + `"`, nil
}
