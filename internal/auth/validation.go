package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/letsssgooo/funle/internal/domain/models"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 8
	// bcrypt учитывает только первые 72 байта
	maxPasswordLen = 72
)

// ParseUsername валидирует имя пользователя: буквы, цифры, '-', '_' и '.'.
func ParseUsername(username string) (string, error) {
	username = strings.TrimSpace(username)

	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return "", fmt.Errorf("%w, username must be %d to %d characters long", ErrValidation, minUsernameLen, maxUsernameLen)
	}

	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			continue
		}
		return "", fmt.Errorf("%w, only letters, digits, '-', '_' and '.' can be in username", ErrValidation)
	}

	return username, nil
}

// ParseEmail валидирует email и приводит его к нижнему регистру.
func ParseEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		return "", fmt.Errorf("%w, invalid email", ErrValidation)
	}

	return email, nil
}

// ValidatePassword проверяет длину пароля.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w, password must be at least %d characters long", ErrValidation, minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w, password must be at most %d bytes long", ErrValidation, maxPasswordLen)
	}

	return nil
}

// ParseRole валидирует роль без учета регистра. Пустая строка дает роль User.
func ParseRole(message string) (models.UserRole, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.RoleUser, nil
	}
	if len(strings.Fields(message)) != 1 {
		return "", fmt.Errorf("%w, invalid role", ErrValidation)
	}

	for _, role := range []models.UserRole{models.RoleUser, models.RoleStudent, models.RoleTeacher} {
		if strings.EqualFold(message, string(role)) {
			return role, nil
		}
	}

	return models.ParseUserRole(message)
}
