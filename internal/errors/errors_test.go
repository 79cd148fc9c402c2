package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_FlatEnvelope(t *testing.T) {
	t.Parallel()

	e := Parse(http.StatusBadRequest, []byte(`{"success":false,"message":"code is required","code":"CODE_REQUIRED"}`), "rid-1")

	require.Equal(t, http.StatusBadRequest, e.Status)
	require.Equal(t, "CODE_REQUIRED", e.Code)
	require.Equal(t, "code is required", e.Message)
	require.Equal(t, "rid-1", e.RequestID)
	require.ErrorIs(t, e, ErrValidation)
}

func TestParse_NestedEnvelope(t *testing.T) {
	t.Parallel()

	e := Parse(http.StatusNotFound, []byte(`{"error":{"code":"not_found","message":"course not found","request_id":"r9"}}`), "")

	require.Equal(t, "not_found", e.Code)
	require.Equal(t, "course not found", e.Message)
	require.Equal(t, "r9", e.RequestID)
	require.ErrorIs(t, e, ErrNotFound)
}

func TestParse_StringErrorField(t *testing.T) {
	t.Parallel()

	e := Parse(http.StatusInternalServerError, []byte(`{"error":"boom"}`), "")
	require.Equal(t, "boom", e.Message)
	require.ErrorIs(t, e, ErrServer)
}

func TestParse_NonJSONAndEmptyBody(t *testing.T) {
	t.Parallel()

	e := Parse(http.StatusBadGateway, []byte("<html>bad gateway</html>"), "")
	require.Equal(t, "<html>bad gateway</html>", e.Message)

	e = Parse(http.StatusServiceUnavailable, nil, "")
	require.Equal(t, http.StatusText(http.StatusServiceUnavailable), e.Message)
}

func TestError_IsMapping(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name   string
		err    *Error
		target error
		want   bool
	}{
		{"401", &Error{Status: 401}, ErrUnauthorized, true},
		{"403 plain", &Error{Status: 403, Message: "forbidden"}, ErrForbidden, true},
		{"403 plain is not device", &Error{Status: 403, Message: "forbidden"}, ErrDeviceNotAuthorized, false},
		{"403 device msg", &Error{Status: 403, Message: "Device not authorized for this account"}, ErrDeviceNotAuthorized, true},
		{"403 device code", &Error{Status: 403, Code: "DEVICE_NOT_AUTHORIZED"}, ErrDeviceNotAuthorized, true},
		{"401 device msg", &Error{Status: 401, Message: "device not authorized"}, ErrDeviceNotAuthorized, false},
		{"422", &Error{Status: 422}, ErrValidation, true},
		{"503", &Error{Status: 503}, ErrServer, true},
		{"404 not server", &Error{Status: 404}, ErrServer, false},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, errors.Is(tc.err, tc.target))
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	unauthorized := &Error{Status: 401, Message: "jwt expired"}

	tcs := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"session expired", errors.Join(ErrSessionExpired, unauthorized), KindAuthExpired},
		{"device", fmt.Errorf("op: %w", &Error{Status: 403, Message: "device not authorized"}), KindDeviceNotAuthorized},
		{"validation local", NewValidation("bad code"), KindValidation},
		{"not found", &Error{Status: 404}, KindNotFound},
		{"timeout sentinel", fmt.Errorf("op: %w", ErrTimeout), KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"net timeout", fmt.Errorf("dial: %w", timeoutErr{}), KindTimeout},
		{"canceled", context.Canceled, KindCanceled},
		{"network", fmt.Errorf("op: %w: %w", ErrNetwork, errors.New("connection refused")), KindNetwork},
		{"breaker open", ErrUnavailable, KindNetwork},
		{"server", &Error{Status: 500}, KindServer},
		{"other", errors.New("weird"), KindUnknown},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	require.Empty(t, UserMessage(nil))
	require.Equal(t, msgNetwork, UserMessage(ErrNetwork))
	require.Equal(t, msgTimeout, UserMessage(context.DeadlineExceeded))
	require.Equal(t, msgSessionExpired, UserMessage(ErrSessionExpired))
	require.Equal(t, "كود غير صالح", UserMessage(NewValidation("كود غير صالح")))
	require.Equal(t, "wallet is empty", UserMessage(&Error{Status: 400, Message: "wallet is empty"}))
	require.Equal(t, "device not authorized", UserMessage(&Error{Status: 403, Message: "device not authorized"}))
	require.Equal(t, msgGeneric, UserMessage(&Error{Status: 500, Message: "stack trace"}))
}
