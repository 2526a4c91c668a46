package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner creates and validates short-lived tokens that point at an
// external download URL.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a signed token referencing the report request and its target URL.
func (s *SignedURLSigner) Generate(requestID, target string) (string, time.Time, error) {
	if requestID == "" || target == "" {
		return "", time.Time{}, fmt.Errorf("requestID and target required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(requestID))
	encodedTarget := base64.RawURLEncoding.EncodeToString([]byte(target))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	signature := s.sign(encodedID, ts, encodedTarget)
	return strings.Join([]string{encodedID, ts, encodedTarget, signature}, "."), expiresAt, nil
}

// Parse validates a token and returns the request id and target URL it carries.
func (s *SignedURLSigner) Parse(token string) (requestID, target string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", fmt.Errorf("invalid token format")
	}
	encodedID, ts, encodedTarget, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(encodedID, ts, encodedTarget)), []byte(signature)) {
		return "", "", fmt.Errorf("invalid token signature")
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("invalid timestamp")
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", "", fmt.Errorf("token expired")
	}
	rawID, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return "", "", fmt.Errorf("decode request id: %w", err)
	}
	rawTarget, err := base64.RawURLEncoding.DecodeString(encodedTarget)
	if err != nil {
		return "", "", fmt.Errorf("decode target: %w", err)
	}
	return string(rawID), string(rawTarget), nil
}

func (s *SignedURLSigner) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
