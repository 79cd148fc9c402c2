package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/internal/storage"
)

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveCookies сохраняет cookie базового URL в хранилище, чтобы следующий
// процесс CLI продолжил ту же сессию.
func (c *Client) SaveCookies(ctx context.Context) error {
	const op = "session/SaveCookies"

	if c.store == nil {
		return nil
	}

	cookies := c.jar.Cookies(c.base)
	out := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		out = append(out, storedCookie{Name: ck.Name, Value: ck.Value})
	}

	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.store.Set(ctx, storage.KeyCookies, string(b)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RestoreCookies загружает сохранённые cookie в jar. Отсутствие сохранённых
// cookie ошибкой не считается.
func (c *Client) RestoreCookies(ctx context.Context) error {
	const op = "session/RestoreCookies"

	if c.store == nil {
		return nil
	}

	raw, err := c.store.Get(ctx, storage.KeyCookies)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var in []storedCookie
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}

	cookies := make([]*http.Cookie, 0, len(in))
	for _, v := range in {
		cookies = append(cookies, &http.Cookie{Name: v.Name, Value: v.Value, Path: "/"})
	}
	c.jar.SetCookies(c.base, cookies)

	return nil
}

// SignIn запоминает вошедшего пользователя и cookie сессии.
func (c *Client) SignIn(ctx context.Context, u models.User) error {
	if c.store == nil {
		return nil
	}

	if err := storage.SaveUser(ctx, c.store, u); err != nil {
		return err
	}

	return c.SaveCookies(ctx)
}

// SignOut стирает всё локальное состояние и cookie в памяти.
func (c *Client) SignOut(ctx context.Context) error {
	const op = "session/SignOut"

	cookies := c.jar.Cookies(c.base)
	for _, ck := range cookies {
		ck.Path = "/"
		ck.MaxAge = -1
	}
	c.jar.SetCookies(c.base, cookies)

	if c.store == nil {
		return nil
	}

	if err := storage.ClearAll(ctx, c.store); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
