package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid indicates a player token that failed verification.
	ErrTokenInvalid = errors.New("player token is invalid")
	// ErrSecretRequired indicates token signing without a secret.
	ErrSecretRequired = errors.New("token secret is required")
)

// Claims identify one player of one game.
type Claims struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 player tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens returns a signer for secret.
func NewTokens(secret string) (*Tokens, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	return &Tokens{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for playerID valid for ttl.
func (t *Tokens) Issue(gameID, playerID string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		GameID:   gameID,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and returns its claims.
func (t *Tokens) Verify(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.GameID == "" || claims.PlayerID == "" {
		return Claims{}, fmt.Errorf("%w: missing game or player", ErrTokenInvalid)
	}
	return claims, nil
}
