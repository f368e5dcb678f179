package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Scheme computes and checks a signature over the raw request body. Fanvue's
// docs do not commit to a signing scheme, so the verifier takes it as an
// interface rather than hardcoding one.
type Scheme interface {
	Sign(secret string, body []byte) string
	Verify(secret string, body []byte, signature string) bool
}

// HexHMACSHA256 is HMAC-SHA256 over the exact raw body bytes, encoded as
// lowercase hex. This is the scheme observed in practice.
type HexHMACSHA256 struct{}

func (HexHMACSHA256) Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s HexHMACSHA256) Verify(secret string, body []byte, signature string) bool {
	expected := s.Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Verifier extracts a signature from an ordered list of candidate headers and
// checks it against the shared secret.
type Verifier struct {
	secret  string
	headers []string
	scheme  Scheme
}

func NewVerifier(secret string, headers []string, scheme Scheme) *Verifier {
	if scheme == nil {
		scheme = HexHMACSHA256{}
	}
	return &Verifier{secret: secret, headers: headers, scheme: scheme}
}

// Signature returns the first candidate header value present on the request.
func (v *Verifier) Signature(h http.Header) (string, bool) {
	for _, name := range v.headers {
		if value := h.Get(name); value != "" {
			return value, true
		}
	}
	return "", false
}

func (v *Verifier) Verify(body []byte, signature string) bool {
	return v.scheme.Verify(v.secret, body, signature)
}
