// Package meteoblue builds and signs URLs for the meteoblue weather API.
//
// Signing follows the meteoblue URL signature scheme: an expiry timestamp
// and an HMAC-SHA256 digest over the path and query are appended as query
// parameters. See https://docs.meteoblue.com/en/weather-apis/introduction/overview#signing-api-calls
package meteoblue

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"
)

// DefaultExpiry is the default validity window for a signed URL.
const DefaultExpiry = 10 * time.Minute

// SignURL signs the URL with the shared secret and returns the signed URL
// as a string. The signing payload is exactly
// "<path>?<query>&expires=<unix>", so the caller must finalize all query
// parameters before signing; any later mutation invalidates the signature.
// Signed URLs are replayable until expiry; this is not a nonce scheme.
func SignURL(u *url.URL, sharedSecret string, expireIn time.Duration) (string, error) {
	if sharedSecret == "" {
		return "", fmt.Errorf("shared secret must not be empty")
	}

	expiresAt := time.Now().Unix() + int64(expireIn.Seconds())
	dataToSign := fmt.Sprintf("%s?%s&expires=%d", u.EscapedPath(), u.RawQuery, expiresAt)

	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write([]byte(dataToSign))
	signature := hex.EncodeToString(mac.Sum(nil))

	origin := u.Scheme + "://" + u.Host
	return origin + dataToSign + "&sig=" + signature, nil
}
