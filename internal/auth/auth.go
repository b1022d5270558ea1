package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/storage"
	"github.com/letsssgooo/funle/internal/token"
)

// PasswordHasher вычисляет и проверяет хэш пароля.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher — PasswordHasher на bcrypt.
type BcryptHasher struct {
	Cost int
}

// Hash возвращает bcrypt хэш пароля.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// Compare возвращает ошибку, если пароль не подходит к хэшу.
func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Service реализует Authenticator.
type Service struct {
	users  storage.UserRepo
	tokens *token.Service
	hasher PasswordHasher
	now    func() time.Time
}

// NewService создает Service.
func NewService(users storage.UserRepo, tokens *token.Service, hasher PasswordHasher) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		now:    time.Now,
	}
}

var _ Authenticator = (*Service)(nil)

// Register валидирует данные и создает пользователя.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	username, err := ParseUsername(req.Username)
	if err != nil {
		return nil, err
	}
	email, err := ParseEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err = ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		Role:           role,
		Progress:       models.NewProgress(),
		CreatedAt:      s.now().UTC(),
	}
	if err = s.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	slog.Info("user registered", "user", u.ID, "role", u.Role)

	return u, nil
}

func (s *Service) issue(u *models.User) (Tokens, error) {
	access, err := s.tokens.IssueAccess(u.ID, u.Role)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := s.tokens.IssueRefresh(u.ID, u.Role)
	if err != nil {
		return Tokens{}, err
	}

	return Tokens{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}, nil
}

// Login проверяет email и пароль. Неверный email и неверный пароль
// неразличимы для вызывающего.
func (s *Service) Login(ctx context.Context, email, password string) (Tokens, error) {
	email, err := ParseEmail(email)
	if err != nil {
		return Tokens{}, ErrInvalidCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Tokens{}, ErrInvalidCredentials
		}
		return Tokens{}, fmt.Errorf("login: %w", err)
	}

	if err = s.hasher.Compare(u.HashedPassword, password); err != nil {
		return Tokens{}, ErrInvalidCredentials
	}

	return s.issue(u)
}

// Refresh выдает новую пару токенов. Роль берется из текущих данных
// пользователя, а не из старого токена.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	claims, err := s.tokens.Validate(refreshToken)
	if err != nil {
		return Tokens{}, err
	}

	u, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Tokens{}, fmt.Errorf("%w: user no longer exists", errs.ErrUnauthorized)
		}
		return Tokens{}, fmt.Errorf("refresh: %w", err)
	}

	return s.issue(u)
}

// Authenticate проверяет токен и что его владелец все еще существует.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (token.Claims, error) {
	claims, err := s.tokens.Validate(accessToken)
	if err != nil {
		return token.Claims{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	exists, err := s.users.UserExists(ctx, claims.Subject)
	if err != nil {
		return token.Claims{}, fmt.Errorf("authenticate: %w", err)
	}
	if !exists {
		return token.Claims{}, fmt.Errorf("%w: user no longer exists", errs.ErrUnauthorized)
	}

	return claims, nil
}

// Check сообщает, действителен ли токен и существует ли его владелец.
// Для недействительного токена возвращает пустой id.
func (s *Service) Check(ctx context.Context, tokenString string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	claims, ok := s.tokens.Authorize(ctx, tokenString, s.users)
	if !ok {
		return "", false
	}

	return claims.Subject, true
}
