package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/logger"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Secret        string
	TTL           time.Duration
	AdminUsername string
}

type Claims struct {
	Username   string      `json:"username"`
	Role       models.Role `json:"role"`
	MechanicID *uint       `json:"mechanic_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() uint {
	id, _ := strconv.ParseUint(c.Subject, 10, 64)
	return uint(id)
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	Mechanic  *uint        `json:"mechanic_id,omitempty"`
}

type Service struct {
	store repository.Store
	cfg   Config
	now   func() time.Time
	log   zerolog.Logger
}

func NewService(store repository.Store, cfg Config) *Service {
	if cfg.TTL == 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
	}
	return &Service{store: store, cfg: cfg, now: time.Now, log: logger.WithComponent("auth")}
}

// HashPassword returns the bcrypt hash stored for a user.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAdminPassword checks plain against the designated administrator. A
// missing, inactive or non-seller administrator is Forbidden, a wrong
// password Unauthorized.
func (s *Service) VerifyAdminPassword(ctx context.Context, plain string) error {
	const op = "auth.VerifyAdminPassword"

	admin, err := s.store.Users().FindByUsername(ctx, s.cfg.AdminUsername)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.Forbidden(op, "administrator account is not configured")
	}
	if err != nil {
		return err
	}
	if !admin.Active || admin.Role != models.RoleSeller {
		return apperrors.Forbidden(op, "administrator account cannot authorize this action")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(plain)) != nil {
		s.log.Warn().Msg("administrator password rejected")
		return apperrors.Unauthorized(op, "invalid administrator password")
	}
	return nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	const op = "auth.Login"

	user, err := s.store.Users().FindByUsername(ctx, username)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Unauthorized(op, "invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !user.Active || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Warn().Str("username", username).Msg("login rejected")
		return nil, apperrors.Unauthorized(op, "invalid credentials")
	}

	var mechanicID *uint
	if user.Role == models.RoleMechanic {
		m, err := s.store.Mechanics().FindByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		if m != nil {
			mechanicID = &m.ID
		}
	}

	now := s.now()
	expires := now.Add(s.cfg.TTL)
	claims := Claims{
		Username:   user.Username,
		Role:       user.Role,
		MechanicID: mechanicID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("%s: sign token: %w", op, err)
	}

	s.log.Info().Str("username", username).Str("role", string(user.Role)).Msg("login")
	return &Session{Token: token, ExpiresAt: expires, User: user, Mechanic: mechanicID}, nil
}

func (s *Service) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, apperrors.Unauthorized("auth.ParseToken", "invalid or expired token")
	}
	return claims, nil
}
