// Package downloadtoken issues and validates short-lived download links.
package downloadtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const actionDownload = "download"

// ErrInvalidToken is returned for expired, malformed, or mismatched tokens.
var ErrInvalidToken = errors.New("invalid download token")

// Signer issues HMAC signed download tokens scoped to a single video.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// Enabled reports whether a signing secret is configured.
func (s *Signer) Enabled() bool {
	return len(s.secret) > 0
}

// Sign creates a token granting download access to one video id.
func (s *Signer) Sign(videoID string) (string, error) {
	if !s.Enabled() {
		return "", errors.New("download token secret is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"videoId": videoID,
		"action":  actionDownload,
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign download token: %w", err)
	}
	return signed, nil
}

// Validate checks the token and confirms it grants access to videoID.
func (s *Signer) Validate(tokenString, videoID string) error {
	if !s.Enabled() {
		return errors.New("download token secret is not configured")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidToken
	}
	if claims["action"] != actionDownload {
		return ErrInvalidToken
	}
	if claims["videoId"] != videoID {
		return ErrInvalidToken
	}
	return nil
}
