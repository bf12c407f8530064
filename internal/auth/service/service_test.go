package service

import (
	"testing"
	"time"

	"salesops_backend/internal/auth/repository"
	"salesops_backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestSignAccessTokenCarriesIdentityClaims(t *testing.T) {
	cfg := &config.Config{
		JWTAccessSecret: "test-secret",
		AccessTokenTTL:  15 * time.Minute,
	}
	svc := &Service{cfg: cfg}

	user := &repository.User{
		ID:   uuid.New(),
		Name: "Jamie Setter",
	}
	membership := &repository.Membership{
		TeamID: uuid.New(),
		Role:   "setter",
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signed, err := svc.signAccessToken(user, membership, now)
	if err != nil {
		t.Fatalf("signAccessToken failed: %v", err)
	}

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTAccessSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("failed to parse signed token: %v", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("expected MapClaims")
	}

	if got := claims["sub"]; got != user.ID.String() {
		t.Errorf("sub = %v, want %s", got, user.ID)
	}
	if got := claims["name"]; got != user.Name {
		t.Errorf("name = %v, want %s", got, user.Name)
	}
	if got := claims["teamId"]; got != membership.TeamID.String() {
		t.Errorf("teamId = %v, want %s", got, membership.TeamID)
	}

	roles, ok := claims["roles"].([]interface{})
	if !ok || len(roles) != 1 || roles[0] != "setter" {
		t.Errorf("roles = %v, want [setter]", claims["roles"])
	}

	exp, ok := claims["exp"].(float64)
	if !ok || int64(exp) != now.Add(cfg.AccessTokenTTL).Unix() {
		t.Errorf("exp = %v, want %d", claims["exp"], now.Add(cfg.AccessTokenTTL).Unix())
	}
}
