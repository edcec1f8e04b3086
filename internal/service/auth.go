package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour

	minPasswordLen = 8
)

type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	Events        events.Publisher
	Now           Clock
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", fmt.Errorf("invalid email")
	}
	return strings.ToLower(addr.Address), nil
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, invalidf("email is invalid")
	}
	if len(req.Password) < minPasswordLen {
		return nil, invalidf("password must be at least %d characters", minPasswordLen)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}

	_, err = s.Repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: pwHash,
		Name:         name,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         models.RoleCustomer,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, err
	}

	emit(ctx, s.Events, events.TopicUsers, user.ID.String(), "user_registered", map[string]any{
		"user_id": user.ID.String(),
	})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*models.User, tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(notFound(err, "user"), ErrNotFound) {
			return nil, tokens.Pair{}, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		return nil, tokens.Pair{}, err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "reason", "wrong password", "user_id", user.ID)
		return nil, tokens.Pair{}, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	pair, err := s.issue(ctx, s.Repo, user)
	if err != nil {
		return nil, tokens.Pair{}, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued. A revoked, unknown or expired token is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}

	var pair tokens.Pair
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		stored, err := tx.GetRefreshToken(ctx, claims.ID)
		if err != nil {
			if errors.Is(notFound(err, "refresh token"), ErrNotFound) {
				return fmt.Errorf("%w: unknown refresh token", ErrUnauthorized)
			}
			return err
		}
		if stored.Token != tokens.Sha256Hex(refreshToken) || stored.Revoked || stored.ExpiresAt <= s.Now.now().Unix() {
			l.Warn("refresh_rejected", "jti", claims.ID, "revoked", stored.Revoked)
			return fmt.Errorf("%w: refresh token revoked or expired", ErrUnauthorized)
		}

		ok, err := tx.RevokeRefreshToken(ctx, claims.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: refresh token already used", ErrUnauthorized)
		}

		user, err := tx.GetUser(ctx, stored.UserID)
		if err != nil {
			if errors.Is(notFound(err, "user"), ErrNotFound) {
				return fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
			}
			return err
		}

		pair, err = s.issue(ctx, tx, user)
		return err
	})
	return pair, err
}

// Logout revokes the refresh token. Unknown or empty tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil
	}
	_, err = s.Repo.RevokeRefreshToken(ctx, claims.ID)
	return err
}

func (s *AuthService) issue(ctx context.Context, r *repo.GormRepo, user *models.User) (tokens.Pair, error) {
	now := s.Now.now()
	accessExp := now.Add(AccessTTL)
	refreshExp := now.Add(RefreshTTL)

	access, err := tokens.NewAccessToken(s.JWTSecret, user.ID.String(), user.Role, accessExp)
	if err != nil {
		return tokens.Pair{}, err
	}
	refresh, jti, err := tokens.NewRefreshToken(s.RefreshSecret, user.ID.String(), refreshExp)
	if err != nil {
		return tokens.Pair{}, err
	}

	if err := r.SaveRefreshToken(ctx, &models.RefreshToken{
		Token:     tokens.Sha256Hex(refresh),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}); err != nil {
		return tokens.Pair{}, err
	}

	return tokens.Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}
