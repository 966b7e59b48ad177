package state

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keyInfo = "waconnect oauth state v1"

// DeriveKey picks the signing key for state values. An explicit secret wins;
// otherwise a key is derived from the provider app secret so deployments
// sign state without extra configuration. Both empty disables signing.
func DeriveKey(explicit, appSecret string) ([]byte, error) {
	if explicit != "" {
		return []byte(explicit), nil
	}
	if appSecret == "" {
		return nil, nil
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(appSecret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
