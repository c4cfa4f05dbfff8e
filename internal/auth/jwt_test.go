package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func TestMintTokens_RoundTrip(t *testing.T) {
	sub := Subject{UserID: 42, Email: "a@b.co", Role: "admin"}

	pair, err := MintTokens(sub, testSecret, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("MintTokens() error = %v", err)
	}

	c, err := ParseTyped(pair.AccessToken, testSecret, TokenAccess)
	if err != nil {
		t.Fatalf("ParseTyped(access) error = %v", err)
	}
	if c.UserID != 42 || c.Email != "a@b.co" || c.Role != "admin" {
		t.Errorf("claims = %+v", c)
	}

	if _, err := ParseTyped(pair.RefreshToken, testSecret, TokenRefresh); err != nil {
		t.Errorf("ParseTyped(refresh) error = %v", err)
	}
}

func TestParseTyped_WrongKind(t *testing.T) {
	pair, err := MintTokens(Subject{UserID: 1}, testSecret, time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseTyped(pair.RefreshToken, testSecret, TokenAccess); !errors.Is(err, jwt.ErrTokenInvalidClaims) {
		t.Errorf("refresh token accepted as access token: %v", err)
	}
}

func TestParseClaims_Rejects(t *testing.T) {
	pair, err := MintTokens(Subject{UserID: 1}, testSecret, -time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "expired", token: pair.AccessToken, secret: testSecret},
		{name: "wrong secret", token: pair.RefreshToken, secret: "other"},
		{name: "garbage", token: "not.a.token", secret: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseClaims(tt.token, tt.secret); err == nil {
				t.Error("ParseClaims() expected error")
			}
		})
	}
}

func TestParseClaims_RejectsOtherAlgorithms(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: 1, Type: TokenAccess})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseClaims(s, testSecret); err == nil {
		t.Error("HS512 token accepted")
	}
}
