// Package edgegrid is the HTTP substrate for Akamai's control-plane APIs:
// an EG1-HMAC-SHA256 request signer and a JSON session that classifies
// upstream failures into the domain error taxonomy.
package edgegrid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/acedergren/alecs-mcp-server-akamai-sub006/internal/domain"
)

// maxBodySigningSize caps how much of a request body enters the content
// hash. Akamai ignores bytes past this point when verifying.
const maxBodySigningSize = 131072

const timestampLayout = "20060102T15:04:05+0000"

// Signer produces EG1-HMAC-SHA256 Authorization headers for one credential
// set. The signing key is derived from the client secret and the request
// timestamp, so every request gets a fresh signature.
type Signer struct {
	creds domain.Credentials

	// Overridable for deterministic tests.
	now   func() time.Time
	nonce func() string
}

func NewSigner(creds domain.Credentials) *Signer {
	return &Signer{
		creds: creds,
		now:   time.Now,
		nonce: func() string { return uuid.NewString() },
	}
}

// Sign sets the Authorization header on req. The body must be the exact
// bytes the request will send; only POST bodies enter the content hash.
func (s *Signer) Sign(req *http.Request, body []byte) {
	timestamp := s.now().UTC().Format(timestampLayout)
	authPrefix := fmt.Sprintf(
		"EG1-HMAC-SHA256 client_token=%s;access_token=%s;timestamp=%s;nonce=%s;",
		s.creds.ClientToken, s.creds.AccessToken, timestamp, s.nonce(),
	)

	signingKey := hmacBase64([]byte(s.creds.ClientSecret), []byte(timestamp))
	signature := hmacBase64([]byte(signingKey), []byte(s.dataToSign(req, body, authPrefix)))

	req.Header.Set("Authorization", authPrefix+"signature="+signature)
}

// dataToSign assembles the tab-separated canonical request. No request
// headers are enrolled in the signature, so the headers slot stays empty.
func (s *Signer) dataToSign(req *http.Request, body []byte, authPrefix string) string {
	return strings.Join([]string{
		strings.ToUpper(req.Method),
		strings.ToLower(req.URL.Scheme),
		strings.ToLower(req.URL.Host),
		req.URL.RequestURI(),
		"",
		contentHash(req.Method, body),
		authPrefix,
	}, "\t")
}

// contentHash is the base64 SHA-256 of the body for POST requests, capped
// at maxBodySigningSize, and empty for every other method.
func contentHash(method string, body []byte) string {
	if !strings.EqualFold(method, http.MethodPost) || len(body) == 0 {
		return ""
	}
	if len(body) > maxBodySigningSize {
		body = body[:maxBodySigningSize]
	}
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func hmacBase64(key, data []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
