package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
)

// Время жизни токенов по умолчанию.
const (
	DefaultAccessTTL  = 60 * time.Second
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// Ошибки проверки токена. Каждая из них также является errs.ErrUnauthorized.
var (
	ErrMalformed = fmt.Errorf("%w: malformed token", errs.ErrUnauthorized)
	ErrSignature = fmt.Errorf("%w: invalid token signature", errs.ErrUnauthorized)
	ErrExpired   = fmt.Errorf("%w: token expired", errs.ErrUnauthorized)
)

var signingMethod = jwt.SigningMethodHS512

// Claims — полезная нагрузка токена.
type Claims struct {
	Role models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserLookup проверяет, что владелец токена всё ещё существует.
type UserLookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

// Service выпускает и проверяет токены, подписанные общим секретом.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithAccessTTL задаёт время жизни access токена.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Service) { s.accessTTL = d }
}

// WithRefreshTTL задаёт время жизни refresh токена.
func WithRefreshTTL(d time.Duration) Option {
	return func(s *Service) { s.refreshTTL = d }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт Service. Смена секрета делает недействительными
// все ранее выпущенные токены.
func NewService(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty token secret", errs.ErrInvalidArgument)
	}

	s := &Service{
		secret:     append([]byte(nil), secret...),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// exp должен быть строго позже iat.
	if s.accessTTL < time.Second || s.refreshTTL < time.Second {
		return nil, fmt.Errorf("%w: token ttl must be at least one second", errs.ErrInvalidArgument)
	}

	return s, nil
}

// IssueAccess выпускает короткоживущий токен.
func (s *Service) IssueAccess(subject string, role models.UserRole) (string, error) {
	return s.issue(subject, role, s.accessTTL)
}

// IssueRefresh выпускает долгоживущий токен.
func (s *Service) IssueRefresh(subject string, role models.UserRole) (string, error) {
	return s.issue(subject, role, s.refreshTTL)
}

func (s *Service) issue(subject string, role models.UserRole, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", errs.ErrInvalidArgument)
	}
	if _, err := models.ParseUserRole(string(role)); err != nil {
		return "", err
	}

	now := s.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Validate проверяет подпись, структуру и срок действия токена.
// Токен действителен только строго до момента истечения.
func (s *Service) Validate(tokenString string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, fmt.Errorf("%w: %v", ErrSignature, err)
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing subject or expiry", ErrMalformed)
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return Claims{}, ErrExpired
	}

	return claims, nil
}

// Authorize сообщает, действителен ли токен и существует ли его владелец.
// Удаление пользователя отзывает все его токены. Claims заполнены только
// при положительном ответе.
func (s *Service) Authorize(ctx context.Context, tokenString string, users UserLookup) (Claims, bool) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return Claims{}, false
	}

	exists, err := users.UserExists(ctx, claims.Subject)
	if err != nil || !exists {
		return Claims{}, false
	}

	return claims, true
}
