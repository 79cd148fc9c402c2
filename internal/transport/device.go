package transport

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MohamedElaraby99/socrates-sub000/internal/device"
	"github.com/MohamedElaraby99/socrates-sub000/pkg/log"
)

// WithDeviceInfo добавляет заголовок x-device-info, если enabled.
// Ошибка или паника при сборке заголовка не мешают запросу: он уходит без заголовка.
func WithDeviceInfo(enabled bool, header func() (string, error)) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if !enabled || header == nil {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			v, err := safeHeader(header)
			if err != nil {
				log.From(r.Context()).Debug("device_info_skipped", slog.String("err", err.Error()))
				return next.RoundTrip(r)
			}

			r = cloneHeaders(r)
			r.Header.Set(device.HeaderName, v)

			return next.RoundTrip(r)
		})
	}
}

func safeHeader(header func() (string, error)) (v string, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = "", fmt.Errorf("device info panic: %v", p)
		}
	}()

	return header()
}
