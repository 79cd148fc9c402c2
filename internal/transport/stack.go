package transport

import (
	"log/slog"
	"net/http"

	"github.com/MohamedElaraby99/socrates-sub000/internal/config"
	"github.com/MohamedElaraby99/socrates-sub000/internal/device"
	"github.com/MohamedElaraby99/socrates-sub000/internal/metrics"
)

// New собирает стандартную цепочку клиента:
// metadata -> logging -> metrics -> breaker -> timeout -> multipart -> device info -> base.
//
// Заголовок устройства включается только вне режима разработки и не для localhost.
func New(base http.RoundTripper, cfg *config.Config, log *slog.Logger, m *metrics.Metrics) http.RoundTripper {
	ics := []Interceptor{
		WithMetadata(cfg.Device.UserAgent),
		Logging(log),
		WithMetrics(m),
	}

	if !cfg.Breaker.Disabled {
		ics = append(ics, WithCircuitBreaker(NewBreaker("portal-api", cfg.Breaker, log)))
	}

	devCfg := cfg.Device
	ics = append(ics,
		WithTimeout(cfg.Timeouts.Request),
		WithMultipart(),
		WithDeviceInfo(!config.IsDevelopment(cfg.API), func() (string, error) {
			return device.Header(device.Collect(devCfg))
		}),
	)

	return Chain(base, ics...)
}
