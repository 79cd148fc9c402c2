package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/internal/session"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/redact"
)

// Сообщения локальной проверки.
const (
	msgCredentialsRequired = "البريد الإلكتروني وكلمة المرور مطلوبان"
)

type Users struct {
	d *doer
}

// Login входит и запоминает пользователя и cookie сессии. 401 здесь означает
// неверные данные, поэтому обновление сессии не запускается.
func (u *Users) Login(ctx context.Context, creds models.Credentials) (models.User, error) {
	const op = "api/Users.Login"

	if blank(creds.Email) || creds.Password == "" {
		return models.User{}, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgCredentialsRequired))
	}

	var user models.User
	if _, err := u.d.call(session.SkipRefresh(ctx), http.MethodPost, "/users/login", nil, creds, &user); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := u.d.sc.SignIn(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_logged_in",
		slog.String("op", op),
		slog.String("email", redact.Email(creds.Email)),
		slog.String("role", string(user.Role)),
	)

	return user, nil
}

// Logout завершает сессию на сервере и всегда стирает локальное состояние.
func (u *Users) Logout(ctx context.Context) error {
	const op = "api/Users.Logout"

	_, callErr := u.d.call(session.SkipRefresh(ctx), http.MethodPost, "/users/logout", nil, nil, nil)
	clearErr := u.d.sc.SignOut(ctx)

	if err := errors.Join(callErr, clearErr); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshToken вызывает ротацию сессии явно, минуя очередь обновления.
func (u *Users) RefreshToken(ctx context.Context) error {
	const op = "api/Users.RefreshToken"

	if _, err := u.d.call(session.SkipRefresh(ctx), http.MethodPost, session.DefaultRefreshPath, nil, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return u.d.sc.SaveCookies(ctx)
}
