package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MohamedElaraby99/socrates-sub000/internal/metrics"
)

// WithMetrics учитывает запросы в prometheus. m == nil — интерсептор прозрачен.
func WithMetrics(m *metrics.Metrics) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if m == nil {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			code := "error"
			if err == nil {
				code = strconv.Itoa(resp.StatusCode)
			}
			m.ObserveRequest(r.Method, code, time.Since(start).Seconds())

			return resp, err
		})
	}
}
