package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Token kinds carried in the "typ" claim
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Subject identifies the holder of a token pair
type Subject struct {
	UserID int64
	Email  string
	Role   string
}

func MintTokens(sub Subject, secret string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	now := time.Now()
	at, err := sign(sub, TokenAccess, now, accessTTL, secret)
	if err != nil {
		return TokenPair{}, err
	}
	rt, err := sign(sub, TokenRefresh, now, refreshTTL, secret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: at, RefreshToken: rt}, nil
}

func sign(sub Subject, typ string, now time.Time, ttl time.Duration, secret string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: sub.UserID,
		Email:  sub.Email,
		Role:   sub.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return t.SignedString([]byte(secret))
}

func ParseClaims(tokenStr, secret string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// ParseTyped parses a token and checks it is of the wanted kind
func ParseTyped(tokenStr, secret, typ string) (*Claims, error) {
	c, err := ParseClaims(tokenStr, secret)
	if err != nil {
		return nil, err
	}
	if c.Type != typ {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}
