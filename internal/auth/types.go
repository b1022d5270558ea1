package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/letsssgooo/funle/internal/domain/errs"
	"github.com/letsssgooo/funle/internal/domain/models"
	"github.com/letsssgooo/funle/internal/token"
)

// Authenticator определяет интерфейс для авторизации
type Authenticator interface {
	// Register создает нового пользователя с пустым прогрессом
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)

	// Login проверяет пароль и выдает пару токенов
	Login(ctx context.Context, email, password string) (Tokens, error)

	// Refresh выдает новую пару токенов по refresh токену
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)

	// Authenticate проверяет access токен и существование его владельца
	Authenticate(ctx context.Context, accessToken string) (token.Claims, error)
}

// RegisterRequest — данные для регистрации.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Tokens — пара выданных токенов.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Ошибки авторизации
var (
	ErrValidation         = fmt.Errorf("%w: validation error", errs.ErrInvalidArgument)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", errs.ErrUnauthorized)
)

// Таймаут проверки владельца токена
const timeoutAuth = 500 * time.Millisecond
