// transport предоставляет цепочку интерсепторов исходящих HTTP-запросов
// (http.RoundTripper) для клиента портала.
//
// Интерсепторы не изменяют исходный *http.Request: заголовки меняются на копии.
package transport

import (
	"context"
	"net/http"
)

// Interceptor оборачивает RoundTripper.
type Interceptor func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain собирает цепочку: первый интерсептор — внешний.
// base == nil означает http.DefaultTransport.
func Chain(base http.RoundTripper, ics ...Interceptor) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(ics) - 1; i >= 0; i-- {
		if ics[i] != nil {
			rt = ics[i](rt)
		}
	}

	return rt
}

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxMultipart ctxKey = "multipart_content_type"
)

// HeaderRequestID — заголовок корреляции запроса.
const HeaderRequestID = "X-Request-Id"

// WithRequestID кладёт request id в контекст; WithMetadata отправит его в заголовке.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestID, rid)
}

// RequestID достаёт request id из контекста.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(ctxRequestID).(string)
	return rid
}

// cloneHeaders — копия запроса со своей картой заголовков; тело общее.
func cloneHeaders(r *http.Request) *http.Request {
	return r.Clone(r.Context())
}
