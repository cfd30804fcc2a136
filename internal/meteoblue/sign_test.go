package meteoblue

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestSignURL(t *testing.T) {
	u, err := url.Parse("https://my.meteoblue.com/weather/v1/forecast")
	if err != nil {
		t.Fatalf("Failed to parse URL: %v", err)
	}

	signed, err := SignURL(u, "test-secret", DefaultExpiry)
	if err != nil {
		t.Fatalf("SignURL() error = %v", err)
	}

	parsed, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("Failed to parse signed URL: %v", err)
	}

	q := parsed.Query()
	if !q.Has("expires") {
		t.Error("signed URL missing expires parameter")
	}
	if !q.Has("sig") {
		t.Error("signed URL missing sig parameter")
	}
}

func TestSignURL_ExpirationTimestamp(t *testing.T) {
	u, _ := url.Parse("https://my.meteoblue.com/weather/v1/forecast")

	expireIn := 5 * time.Minute
	now := time.Now().Unix()

	signed, err := SignURL(u, "test-secret", expireIn)
	if err != nil {
		t.Fatalf("SignURL() error = %v", err)
	}

	parsed, _ := url.Parse(signed)
	expires, err := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	if err != nil {
		t.Fatalf("Failed to parse expires: %v", err)
	}

	want := now + int64(expireIn.Seconds())
	if expires < want-1 || expires > want+1 {
		t.Errorf("expires = %d, want %d ±1", expires, want)
	}
}

func TestSignURL_SignatureMatchesCanonicalString(t *testing.T) {
	u, _ := url.Parse("https://my.meteoblue.com/packages/basic-day?lat=47.3769&lon=8.5417")
	secret := "test-secret"

	signed, err := SignURL(u, secret, DefaultExpiry)
	if err != nil {
		t.Fatalf("SignURL() error = %v", err)
	}

	// The signature covers everything before "&sig=" minus the origin.
	parts := strings.SplitN(signed, "&sig=", 2)
	if len(parts) != 2 {
		t.Fatalf("signed URL has no sig parameter: %s", signed)
	}
	canonical := strings.TrimPrefix(parts[0], "https://my.meteoblue.com")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	want := hex.EncodeToString(mac.Sum(nil))

	if parts[1] != want {
		t.Errorf("sig = %s, want %s", parts[1], want)
	}
}

func TestSignURL_NoQueryParameters(t *testing.T) {
	u, _ := url.Parse("https://my.meteoblue.com/weather/v1/forecast")

	signed, err := SignURL(u, "test-secret", DefaultExpiry)
	if err != nil {
		t.Fatalf("SignURL() error = %v", err)
	}

	// An empty query still serializes as "<path>?&expires=...".
	if !strings.Contains(signed, "/weather/v1/forecast?&expires=") {
		t.Errorf("signed URL = %s, want canonical form with empty query", signed)
	}
}

func TestSignURL_EmptySecret(t *testing.T) {
	u, _ := url.Parse("https://my.meteoblue.com/weather/v1/forecast")

	if _, err := SignURL(u, "", DefaultExpiry); err == nil {
		t.Error("SignURL() with empty secret succeeded, want error")
	}
}
