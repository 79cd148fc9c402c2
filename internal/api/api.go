// api — типизированные клиенты REST-эндпоинтов портала поверх session.Client.
//
// Ответ бэкенда — {"success","message","data"}; если data нет, декодируется
// всё тело. Ответ не 2xx превращается в *apierrors.Error. Каждый вызов
// принимает context.Context.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/internal/session"
)

// Clients — все клиенты API на одном session.Client.
type Clients struct {
	Users         *Users
	Courses       *Courses
	Payments      *Payments
	CourseAccess  *CourseAccess
	Financial     *Financial
	Notifications *Notifications
	Instructors   *Instructors
	OfflineGrades *OfflineGrades
	Groups        *Groups
	Search        *Search
}

func New(sc *session.Client) *Clients {
	d := &doer{sc: sc}

	return &Clients{
		Users:         &Users{d: d},
		Courses:       &Courses{d: d},
		Payments:      &Payments{d: d},
		CourseAccess:  &CourseAccess{d: d},
		Financial:     &Financial{d: d},
		Notifications: &Notifications{d: d},
		Instructors:   &Instructors{d: d},
		OfflineGrades: &OfflineGrades{d: d},
		Groups:        &Groups{d: d},
		Search:        &Search{d: d},
	}
}

type doer struct {
	sc *session.Client
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call отправляет JSON-запрос и декодирует ответ в out (если out != nil).
// Возвращает message из конверта.
func (d *doer) call(ctx context.Context, method, path string, query url.Values, in, out any) (string, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return "", fmt.Errorf("encode: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := d.newRequest(ctx, method, path, query, body)
	if err != nil {
		return "", err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := d.send(req)
	if err != nil {
		return "", err
	}

	return decodeEnvelope(raw, out)
}

func (d *doer) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := d.sc.BaseURL() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	return req, nil
}

// send выполняет запрос и возвращает тело 2xx-ответа.
func (d *doer) send(req *http.Request) ([]byte, error) {
	resp, err := d.sc.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode/100 != 2 {
		return nil, session.DrainError(resp)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w: %w", apierrors.ErrNetwork, err)
	}

	return raw, nil
}

func decodeEnvelope(raw []byte, out any) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if out == nil {
			return "", nil
		}
		return "", fmt.Errorf("decode response: %w", err)
	}

	if env.Success != nil && !*env.Success {
		return env.Message, &apierrors.Error{Status: http.StatusOK, Message: env.Message}
	}

	if out == nil {
		return env.Message, nil
	}

	payload := raw
	if len(env.Data) > 0 && string(env.Data) != "null" {
		payload = env.Data
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return env.Message, fmt.Errorf("decode data: %w", err)
	}

	return env.Message, nil
}

func esc(s string) string { return url.PathEscape(s) }

func blank(s string) bool { return strings.TrimSpace(s) == "" }
