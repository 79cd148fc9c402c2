package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/MohamedElaraby99/socrates-sub000/internal/config"
	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
)

// errServerStatus помечает 5xx как неудачу для breaker; наружу не выходит.
var errServerStatus = errors.New("server status")

// NewBreaker создаёт circuit breaker по конфигурации. Размыкается, когда доля
// неудач за окно Interval не меньше FailureRatio при минимум MinRequests запросах.
// Отмена запроса вызывающим неудачей не считается.
func NewBreaker(name string, cfg config.BreakerConfig, log *slog.Logger) *gobreaker.CircuitBreaker {
	if log == nil {
		log = slog.Default()
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("breaker_state_changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
}

// WithCircuitBreaker пропускает запросы через cb. Сетевые ошибки и 5xx — неудачи,
// 4xx — нет. В разомкнутом состоянии запрос не отправляется, возвращается
// ошибка, совместимая с apierrors.ErrUnavailable. cb == nil — интерсептор прозрачен.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if cb == nil {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			res, err := cb.Execute(func() (interface{}, error) {
				resp, err := next.RoundTrip(r)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode >= http.StatusInternalServerError {
					return resp, errServerStatus
				}
				return resp, nil
			})

			switch {
			case errors.Is(err, errServerStatus):
				return res.(*http.Response), nil
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				return nil, fmt.Errorf("%w: %w", apierrors.ErrUnavailable, err)
			case err != nil:
				return nil, err
			}

			return res.(*http.Response), nil
		})
	}
}
