package transport

import (
	"context"
	"mime"
	"net/http"
)

// WithMultipartBody помечает запрос как multipart. contentType — значение,
// выданное кодировщиком (multipart.Writer.FormDataContentType), с boundary.
func WithMultipartBody(ctx context.Context, contentType string) context.Context {
	return context.WithValue(ctx, ctxMultipart, contentType)
}

// WithMultipart убирает явно заданный Content-Type у multipart-запросов:
//   - запрос помечен WithMultipartBody — ставится заголовок кодировщика;
//   - Content-Type multipart/form-data без boundary — удаляется;
//   - остальные запросы не трогаются.
func WithMultipart() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if ct, _ := r.Context().Value(ctxMultipart).(string); ct != "" {
				if r.Header.Get("Content-Type") != ct {
					r = cloneHeaders(r)
					r.Header.Set("Content-Type", ct)
				}
				return next.RoundTrip(r)
			}

			mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err == nil && mt == "multipart/form-data" && params["boundary"] == "" {
				r = cloneHeaders(r)
				r.Header.Del("Content-Type")
			}

			return next.RoundTrip(r)
		})
	}
}
