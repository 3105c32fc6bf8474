// Package crypto builds the pass manifest, signs it with the pass type
// certificate and derives the cache validator.
package crypto

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vbncursed/vkr/pass-service/internal/apperr"
	"github.com/vbncursed/vkr/pass-service/internal/models"
)

// Manifest — имя файла → SHA-1 в hex (нижний регистр).
type Manifest map[string]string

var reservedNames = map[string]bool{
	models.FilePass:      true,
	models.FileManifest:  true,
	models.FileSignature: true,
}

// BuildManifest хеширует pass.json (ровно те байты, что пойдут в архив)
// и каждый ассет.
func BuildManifest(passJSON []byte, assets models.AssetSet) (Manifest, error) {
	if len(passJSON) == 0 {
		return nil, apperr.Invalid(apperr.StageSign, "pass_json_empty", "pass document is empty")
	}
	m := make(Manifest, len(assets)+1)
	m[models.FilePass] = digest(passJSON)
	for name, data := range assets {
		if reservedNames[name] {
			return nil, apperr.Invalid(apperr.StageSign, "asset_name_reserved", fmt.Sprintf("asset name %q is reserved", name))
		}
		m[name] = digest(data)
	}
	return m, nil
}

// Bytes — компактный JSON с отсортированными ключами. Подписываются и
// упаковываются именно эти байты.
func (m Manifest) Bytes() ([]byte, error) {
	return json.Marshal(map[string]string(m))
}

func (m Manifest) Names() []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Matches сверяет содержимое файла с записью манифеста.
func (m Manifest) Matches(name string, data []byte) bool {
	want, ok := m[name]
	return ok && want == digest(data)
}

func digest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
