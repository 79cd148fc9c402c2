package transport

import (
	"net/http"

	"github.com/google/uuid"
)

// WithMetadata добавляет в запрос заголовки:
//   - Accept: application/json (если вызывающий не задал свой);
//   - User-Agent (если передан параметром);
//   - X-Request-Id: из запроса, из контекста или новый UUID.
func WithMetadata(userAgent string) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			r = cloneHeaders(r)

			if r.Header.Get("Accept") == "" {
				r.Header.Set("Accept", "application/json")
			}
			if userAgent != "" {
				r.Header.Set("User-Agent", userAgent)
			}
			if r.Header.Get(HeaderRequestID) == "" {
				rid := RequestID(r.Context())
				if rid == "" {
					rid = uuid.NewString()
				}
				r.Header.Set(HeaderRequestID, rid)
			}

			return next.RoundTrip(r)
		})
	}
}
