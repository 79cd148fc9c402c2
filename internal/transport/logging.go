package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/redact"
)

// Logging — логирование исходящих запросов.
// Поведение:
//   - берёт X-Request-Id из запроса (или генерирует новый и добавляет);
//   - добавляет поля request_id/method/path, прокладывает обогащённый логгер в контекст (pkg/log);
//   - пишет одну финальную запись уровня Info: msg="http", status, dur (и err при сбое).
//
// Безопасность: не логирует тело и query; наличие cookie отмечается маркером redact.
func Logging(base *slog.Logger) Interceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := r.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
				r = cloneHeaders(r)
				r.Header.Set(HeaderRequestID, rid)
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			r = r.WithContext(log.Into(r.Context(), l))

			attrs := []any{}
			if r.Header.Get("Cookie") != "" {
				attrs = append(attrs, slog.String("cookie", redact.Cookie()))
			}

			resp, err := next.RoundTrip(r)

			attrs = append(attrs, slog.Duration("dur", time.Since(start)))
			if err != nil {
				attrs = append(attrs, slog.Int("status", 0), slog.String("err", err.Error()))
			} else {
				attrs = append(attrs, slog.Int("status", resp.StatusCode))
				if len(resp.Header.Values("Set-Cookie")) > 0 {
					attrs = append(attrs, slog.String("set_cookie", redact.Cookie()))
				}
			}
			l.Info("http", attrs...)

			return resp, err
		})
	}
}
