// errors приводит ответы бэкенда и сбои транспорта к единой таксономии:
//   - сеть/таймаут — общий тост о сбое;
//   - 401 — восстанавливается обновлением сессии, при неудаче — принудительный выход;
//   - 403 «устройство не авторизовано» — отдаётся как есть, без повтора;
//   - ошибки валидации — по возможности ловятся до сети, иначе берутся из ответа;
//   - неожиданный формат ответа — общее сообщение.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized — 401 от бэкенда.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden — 403 от бэкенда.
	ErrForbidden = errors.New("forbidden")
	// ErrDeviceNotAuthorized — 403 с маркером неавторизованного устройства. Не повторяется.
	ErrDeviceNotAuthorized = errors.New("device not authorized")
	// ErrNotFound — 404.
	ErrNotFound = errors.New("not found")
	// ErrValidation — 400/422 или локальная проверка до отправки запроса.
	ErrValidation = errors.New("validation failed")
	// ErrServer — 5xx.
	ErrServer = errors.New("server error")
	// ErrSessionExpired — обновление сессии не удалось; локальная сессия очищена.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetwork — запрос не дошёл до сервера или ответ не получен.
	ErrNetwork = errors.New("network error")
	// ErrTimeout — истёк таймаут запроса.
	ErrTimeout = errors.New("request timeout")
	// ErrUnavailable — circuit breaker разомкнут, запрос не отправлялся.
	ErrUnavailable = errors.New("backend unavailable")
)

// deviceMarkers — подстроки сообщения 403, означающие неавторизованное устройство.
var deviceMarkers = []string{
	"device_not_authorized",
	"device not authorized",
	"الجهاز غير مصرح",
}

// Error — ответ бэкенда со статусом не 2xx.
// Code — машиночитаемый код, если сервер его прислал.
// Message — сообщение сервера как есть.
type Error struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}

	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Is сопоставляет ответ с сентинелами пакета по статусу и маркерам.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrDeviceNotAuthorized:
		return e.Status == http.StatusForbidden && (IsDeviceMarker(e.Message) || IsDeviceMarker(e.Code))
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
	case ErrServer:
		return e.Status >= http.StatusInternalServerError
	}

	return false
}

// body — оба формата ошибок, которые встречаются у бэкенда:
// {"success":false,"message":"...","code":"..."} и {"error":{"code","message","request_id"}}.
type body struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Error   json.RawMessage `json:"error"`
}

type nested struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Parse строит Error из статуса и тела ответа. Нераспознанное тело
// попадает в Message целиком (обрезанным), пустое — заменяется текстом статуса.
func Parse(status int, raw []byte, requestID string) *Error {
	e := &Error{Status: status, RequestID: requestID}

	var b body
	if err := json.Unmarshal(raw, &b); err == nil {
		e.Message = b.Message
		e.Code = b.Code

		if len(b.Error) > 0 {
			var n nested
			if err := json.Unmarshal(b.Error, &n); err == nil {
				e.Code = firstNonEmpty(e.Code, n.Code)
				e.Message = firstNonEmpty(e.Message, n.Message)
				e.RequestID = firstNonEmpty(e.RequestID, n.RequestID)
			} else {
				var s string
				if json.Unmarshal(b.Error, &s) == nil {
					e.Message = firstNonEmpty(e.Message, s)
				}
			}
		}
	} else {
		e.Message = truncate(strings.TrimSpace(string(raw)), 512)
	}

	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	return e
}

// IsDeviceMarker — содержит ли строка маркер неавторизованного устройства.
func IsDeviceMarker(s string) bool {
	s = strings.ToLower(s)
	for _, m := range deviceMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}

	return false
}

// ValidationError — локальная ошибка проверки входных данных; запрос не отправлялся.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidation создаёт ValidationError с пользовательским сообщением.
func NewValidation(msg string) error { return &ValidationError{Message: msg} }

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}

	return b
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
