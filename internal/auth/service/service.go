// Package service implements sign-in and token issuance for the sales portal.
package service

import (
	"context"
	"strings"
	"time"

	"salesops_backend/internal/auth/password"
	"salesops_backend/internal/auth/repository"
	"salesops_backend/internal/auth/token"
	"salesops_backend/internal/config"
	"salesops_backend/platform/apperr"
	"salesops_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshTokenBytes = 48

// TokenPair is what a successful sign-in or refresh hands back to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Profile is the authenticated user's own view of their account.
type Profile struct {
	ID        uuid.UUID
	Email     string
	Name      string
	TeamID    uuid.UUID
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Service struct {
	repo *repository.Repository
	cfg  *config.Config
	log  *logger.Logger
}

func New(repo *repository.Repository, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

// SignIn verifies credentials and issues a token pair. Lookup and password
// failures collapse into the same error so the endpoint cannot be used to
// probe which emails exist.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (*TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked whether or
// not a new pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	hash := token.HashSHA256(refreshToken)
	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, err
	}
	if time.Now().After(expiresAt) {
		return nil, apperr.Unauthorized("refresh token expired")
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}

	return s.issueTokens(ctx, user)
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	membership, err := s.repo.GetMembership(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		TeamID:    membership.TeamID,
		Role:      membership.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}, nil
}

// ChangePassword swaps the hash and revokes every refresh token, forcing
// other sessions back through sign-in.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := password.Compare(user.PasswordHash, currentPassword); err != nil {
		return apperr.Unauthorized("invalid credentials")
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if err := s.repo.RevokeAllRefreshTokens(ctx, userID); err != nil {
		s.log.Warn("failed to revoke refresh tokens after password change", "userId", userID.String(), "error", err)
	}

	return nil
}

func (s *Service) issueTokens(ctx context.Context, user *repository.User) (*TokenPair, error) {
	membership, err := s.repo.GetMembership(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.signAccessToken(user, membership, time.Now())
	if err != nil {
		return nil, err
	}

	refreshToken, err := token.GenerateRandomToken(refreshTokenBytes)
	if err != nil {
		return nil, err
	}

	hash := token.HashSHA256(refreshToken)
	expiresAt := time.Now().Add(s.cfg.RefreshTokenTTL)
	if err := s.repo.CreateRefreshToken(ctx, user.ID, hash, expiresAt); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// signAccessToken mints the HS256 JWT whose claims the auth middleware reads:
// sub, name, teamId, and roles.
func (s *Service) signAccessToken(user *repository.User, membership *repository.Membership, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":    user.ID.String(),
		"name":   user.Name,
		"teamId": membership.TeamID.String(),
		"roles":  []string{membership.Role},
		"exp":    now.Add(s.cfg.AccessTokenTTL).Unix(),
		"iat":    now.Unix(),
	}

	signed := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return signed.SignedString([]byte(s.cfg.JWTAccessSecret))
}
