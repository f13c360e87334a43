package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrLinkInvalid covers malformed tokens and bad signatures.
	ErrLinkInvalid = errors.New("invalid link token")
	// ErrLinkExpired is returned once a token is past its expiry.
	ErrLinkExpired = errors.New("link token expired")
)

// LinkClaims is the content of a signed download link.
type LinkClaims struct {
	Kind      string
	Ref       string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates short-lived download tokens.
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

// Generate returns a token binding kind (for example "berkas") to ref until the TTL elapses.
func (s *SignedURLSigner) Generate(kind, ref string) (string, time.Time, error) {
	if kind == "" || ref == "" {
		return "", time.Time{}, fmt.Errorf("kind and ref required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedRef := base64.RawURLEncoding.EncodeToString([]byte(ref))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{kind, exp, encodedRef, s.sign(kind, exp, encodedRef)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns its claims.
func (s *SignedURLSigner) Parse(token string) (LinkClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return LinkClaims{}, ErrLinkInvalid
	}
	kind, exp, encodedRef, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(kind, exp, encodedRef)), []byte(signature)) {
		return LinkClaims{}, ErrLinkInvalid
	}
	rawRef, err := base64.RawURLEncoding.DecodeString(encodedRef)
	if err != nil {
		return LinkClaims{}, ErrLinkInvalid
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return LinkClaims{}, ErrLinkInvalid
	}
	claims := LinkClaims{Kind: kind, Ref: string(rawRef), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(claims.ExpiresAt) {
		return claims, ErrLinkExpired
	}
	return claims, nil
}

func (s *SignedURLSigner) sign(kind, exp, encodedRef string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(kind + "|" + exp + "|" + encodedRef))
	return hex.EncodeToString(mac.Sum(nil))
}
