package shared

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ModificationKeyLength is the number of base64url characters kept from
// the HMAC.
const ModificationKeyLength = 10

// ModificationKey derives the token guarding updates of key.
// token = base64url(HMAC-SHA256(secret, key))[:10]
func ModificationKey(secret []byte, key string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(key))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))[:ModificationKeyLength]
}

func VerifyModificationKey(secret []byte, key, presented string) bool {
	if presented == "" {
		return false
	}
	return hmac.Equal([]byte(ModificationKey(secret, key)), []byte(presented))
}
