// Package token mints access credentials for the external realtime room
// service. Tokens are signed JWTs carrying a room-join grant; verification
// happens on the room server, not here.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrDisabled is returned by Mint when signing credentials are missing.
var ErrDisabled = errors.New("room credentials not configured")

const defaultTTL = 6 * time.Hour

// VideoGrant describes what the token holder may do on the room server.
type VideoGrant struct {
	Room     string `json:"room,omitempty"`
	RoomJoin bool   `json:"roomJoin,omitempty"`
}

// Claims is the signed payload: standard registered claims plus the video
// grant, matching the shape room servers expect.
type Claims struct {
	jwt.RegisteredClaims
	Video VideoGrant `json:"video"`
}

// Issuer signs room-join tokens with a shared API key/secret pair.
type Issuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
	now       func() time.Time
}

// NewIssuer builds an Issuer. Empty key or secret yields a disabled issuer;
// ttl <= 0 falls back to the default.
func NewIssuer(apiKey, apiSecret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Issuer{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Enabled reports whether signing credentials are present.
func (i *Issuer) Enabled() bool {
	return i != nil && i.apiKey != "" && i.apiSecret != ""
}

// Mint returns a signed token granting identity the right to join room.
func (i *Issuer) Mint(identity, room string) (string, error) {
	if !i.Enabled() {
		return "", ErrDisabled
	}
	if identity == "" {
		return "", errors.New("identity is required")
	}
	if room == "" {
		return "", errors.New("room is required")
	}

	now := i.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Video: VideoGrant{
			Room:     room,
			RoomJoin: true,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.apiSecret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
