package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/floraxhq/florax/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = 30 * time.Minute

// Register creates an account and returns the stored user. Email is the
// tenant key and must be unique; the storage layer enforces that.
func (s *DashboardService) Register(ctx context.Context, name, email, password, phone string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return domain.User{}, errors.New("name, email and password are required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.repo.CreateUser(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Phone:        strings.TrimSpace(phone),
	})
	if err != nil {
		return domain.User{}, err
	}
	_ = s.repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.register", TargetType: "user", TargetID: &u.ID})
	return u, nil
}

func (s *DashboardService) LoginWithSession(ctx context.Context, email, password string, ttl time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	_, err = s.repo.CreateSession(ctx, domain.AuthSession{
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().UTC().Add(ttl),
	})
	if err != nil {
		return domain.User{}, "", err
	}

	_ = s.repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.login.session", TargetType: "user", TargetID: &u.ID})
	return u, plain, nil
}

func (s *DashboardService) LoginWithAPIToken(ctx context.Context, email, password, tokenName string, ttl *time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := time.Now().UTC().Add(*ttl)
		expiresAt = &t
	}

	_, err = s.repo.CreateAPIToken(ctx, domain.APIToken{
		UserID:    u.ID,
		Name:      defaultString(tokenName, "cli"),
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return domain.User{}, "", err
	}

	_ = s.repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.login.api_token", TargetType: "user", TargetID: &u.ID})
	return u, plain, nil
}

func (s *DashboardService) AuthenticateSession(ctx context.Context, token string) (domain.Identity, error) {
	hash := hashToken(token)
	session, err := s.repo.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		return domain.Identity{}, errors.New("unauthorized")
	}
	if session.ExpiresAt.Before(time.Now().UTC()) {
		_ = s.repo.DeleteSessionByTokenHash(ctx, hash)
		return domain.Identity{}, errors.New("session expired")
	}
	return s.identityByUserID(ctx, session.UserID)
}

func (s *DashboardService) AuthenticateBearerToken(ctx context.Context, token string) (domain.Identity, error) {
	apit, err := s.repo.GetAPITokenByTokenHash(ctx, hashToken(token))
	if err != nil {
		return domain.Identity{}, errors.New("unauthorized")
	}
	if apit.ExpiresAt != nil && apit.ExpiresAt.Before(time.Now().UTC()) {
		return domain.Identity{}, errors.New("token expired")
	}
	return s.identityByUserID(ctx, apit.UserID)
}

func (s *DashboardService) LogoutSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.repo.DeleteSessionByTokenHash(ctx, hashToken(token))
}

// LogoutAPIToken revokes a bearer token so it stops authenticating
// immediately, mirroring session logout.
func (s *DashboardService) LogoutAPIToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.repo.DeleteAPITokenByTokenHash(ctx, hashToken(token))
}

// ForgotPassword issues a single-use reset token with a short TTL. The token
// is persisted hashed; the plaintext is for the server-side delivery channel
// (email, out of scope here) and must never reach the requesting client.
func (s *DashboardService) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.resolveUser(ctx, email)
	if err != nil {
		return "", err
	}

	_ = s.repo.DeleteExpiredPasswordResetTokens(ctx, time.Now().UTC())

	plain := uuid.NewString()
	_, err = s.repo.CreatePasswordResetToken(ctx, domain.PasswordResetToken{
		UserID:    u.ID,
		TokenHash: hashToken(plain),
		ExpiresAt: time.Now().UTC().Add(resetTokenTTL),
	})
	if err != nil {
		return "", err
	}
	return plain, nil
}

func (s *DashboardService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return errors.New("new password is required")
	}
	reset, err := s.repo.GetPasswordResetTokenByHash(ctx, hashToken(token))
	if err != nil {
		return errors.New("invalid or expired token")
	}
	if reset.ExpiresAt.Before(time.Now().UTC()) {
		_ = s.repo.DeletePasswordResetToken(ctx, reset.ID)
		return errors.New("invalid or expired token")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, reset.UserID, hash); err != nil {
		return err
	}
	_ = s.repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &reset.UserID, Action: "auth.password.reset", TargetType: "user", TargetID: &reset.UserID})
	return s.repo.DeletePasswordResetToken(ctx, reset.ID)
}

func (s *DashboardService) authenticateEmailPassword(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.User{}, errors.New("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, errors.New("invalid credentials")
	}
	return u, nil
}

func (s *DashboardService) identityByUserID(ctx context.Context, userID uint) (domain.Identity, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Identity{}, errors.New("unauthorized")
	}
	return domain.Identity{User: u}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func newTokenPair() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	return plain, hashToken(plain), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}
	return input
}
