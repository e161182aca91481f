// Package auth issues and verifies session tokens for organization users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"valuation-backend/internal/storage"
)

const (
	RoleSuperAdmin = "super_admin"

	bcryptCost = 12
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type UserStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
}

// Claims is the token payload the API relies on for scoping requests.
type Claims struct {
	UserID       string   `json:"userId"`
	OrgShortName string   `json:"orgShortName"`
	Roles        []string `json:"roles"`
	Permissions  []string `json:"permissions"`
	jwt.RegisteredClaims
}

func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanAccess reports whether the holder may act inside the organization.
func (c *Claims) CanAccess(org string) bool {
	return c.OrgShortName == org || c.HasRole(RoleSuperAdmin)
}

type Service struct {
	log     *slog.Logger
	storage UserStorage
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewService(log *slog.Logger, storage UserStorage, secret string, ttl time.Duration) *Service {
	return &Service{
		log:     log,
		storage: storage,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Login checks the credentials and returns a signed token with the user.
// Unknown emails and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (string, *storage.User, error) {
	const op = "service.auth.Login"

	u, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if !u.IsActive {
		return "", nil, fmt.Errorf("%s: user %d inactive: %w", op, u.ID, ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.Issue(u)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user logged in", slog.Int64("user_id", u.ID), slog.String("org", u.OrgShortName))
	return token, u, nil
}

func (s *Service) Issue(u *storage.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:       strconv.FormatInt(u.ID, 10),
		OrgShortName: u.OrgShortName,
		Roles:        u.Roles,
		Permissions:  u.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
