// storage — постоянное состояние клиента между запусками (аналог localStorage
// веб-клиента): кэш пользователя, роль, признак входа, тема, cookie сессии.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
)

// Ключи хранилища совпадают с ключами localStorage веб-клиента.
const (
	KeyUser     = "data"
	KeyRole     = "role"
	KeyLoggedIn = "isLoggedIn"
	KeyTheme    = "theme"
	KeyCookies  = "cookies"
)

// SessionKeys очищаются при неудачном обновлении сессии.
var SessionKeys = []string{KeyUser, KeyRole, KeyLoggedIn}

// AllKeys очищаются при выходе.
var AllKeys = []string{KeyUser, KeyRole, KeyLoggedIn, KeyTheme, KeyCookies}

var (
	// ErrNotFound — ключ отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrClosed — хранилище уже закрыто.
	ErrClosed = errors.New("storage closed")
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . Store

// Store задаёт контракт key-value хранилища. Реализации потокобезопасны.
type Store interface {
	// Get возвращает значение ключа или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set сохраняет значение ключа.
	Set(ctx context.Context, key, value string) error
	// Delete удаляет ключи; отсутствующие ключи не считаются ошибкой.
	Delete(ctx context.Context, keys ...string) error
	// Close освобождает ресурсы.
	Close() error
}

// SaveUser сохраняет пользователя после входа: data, role, isLoggedIn.
func SaveUser(ctx context.Context, st Store, u models.User) error {
	const op = "storage/SaveUser"

	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := st.Set(ctx, KeyUser, string(b)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := st.Set(ctx, KeyRole, string(u.Role)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := st.Set(ctx, KeyLoggedIn, strconv.FormatBool(true)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// LoadUser читает кэшированного пользователя. Роль берётся из ключа role,
// если она там есть.
func LoadUser(ctx context.Context, st Store) (models.User, error) {
	const op = "storage/LoadUser"

	raw, err := st.Get(ctx, KeyUser)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return models.User{}, fmt.Errorf("%s: decode user: %w", op, err)
	}

	if role, err := st.Get(ctx, KeyRole); err == nil && role != "" {
		u.Role = models.Role(role)
	}

	return u, nil
}

// LoggedIn — признак входа; отсутствие ключа означает false.
func LoggedIn(ctx context.Context, st Store) (bool, error) {
	raw, err := st.Get(ctx, KeyLoggedIn)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage/LoggedIn: %w", err)
	}

	ok, _ := strconv.ParseBool(raw)
	return ok, nil
}

// ClearSession удаляет data, role и isLoggedIn.
func ClearSession(ctx context.Context, st Store) error {
	if err := st.Delete(ctx, SessionKeys...); err != nil {
		return fmt.Errorf("storage/ClearSession: %w", err)
	}

	return nil
}

// ClearAll удаляет всё состояние клиента.
func ClearAll(ctx context.Context, st Store) error {
	if err := st.Delete(ctx, AllKeys...); err != nil {
		return fmt.Errorf("storage/ClearAll: %w", err)
	}

	return nil
}
