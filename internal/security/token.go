package security

import (
	"crypto/rand"
	"encoding/base64"
)

// accessTokenBytes gives 256 bits of entropy; the token is the sole API
// credential, so it must not be guessable.
const accessTokenBytes = 32

// NewAccessToken mints an opaque bearer token from the system CSPRNG.
func NewAccessToken() (string, error) {
	b := make([]byte, accessTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
