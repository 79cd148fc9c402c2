package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRefreshAborted — обновление прервано паникой; ожидающие получают эту ошибку.
var ErrRefreshAborted = errors.New("session refresh aborted")

// RefreshFunc обращается к эндпоинту обновления сессии.
type RefreshFunc func(ctx context.Context) error

// FailureFunc вызывается ведущим при неудачном обновлении до освобождения очереди.
type FailureFunc func(ctx context.Context, err error)

// Refresher гарантирует не более одного обновления сессии одновременно.
//
// Первый вызвавший Refresh становится ведущим и выполняет обновление, остальные
// встают в очередь и получают его результат. Флаг «идёт обновление» снимается
// всегда, в том числе при панике.
type Refresher struct {
	refresh   RefreshFunc
	onFailure FailureFunc
	timeout   time.Duration

	mu       sync.Mutex
	inFlight bool
	waiters  []chan error
	calls    int
}

// NewRefresher создаёт Refresher. timeout <= 0 — без собственного таймаута.
func NewRefresher(refresh RefreshFunc, timeout time.Duration, onFailure FailureFunc) *Refresher {
	return &Refresher{refresh: refresh, timeout: timeout, onFailure: onFailure}
}

// Refresh обновляет сессию или дожидается уже идущего обновления.
//
// Ведущий выполняет обновление на контексте, отвязанном от своей отмены:
// результат нужен всей очереди. Ожидающий может уйти раньше по ctx.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.inFlight {
		ch := make(chan error, 1)
		r.waiters = append(r.waiters, ch)
		r.mu.Unlock()

		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.inFlight = true
	r.calls++
	r.mu.Unlock()

	finished := false
	defer func() {
		if !finished {
			r.finish(ErrRefreshAborted)
		}
	}()

	err := r.run(ctx)
	if err != nil && r.onFailure != nil {
		r.onFailure(ctx, err)
	}

	finished = true
	r.finish(err)

	return err
}

// InFlight — идёт ли сейчас обновление.
func (r *Refresher) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.inFlight
}

// Pending — сколько вызывающих ждут текущего обновления.
func (r *Refresher) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.waiters)
}

// Calls — сколько раз вызывался эндпоинт обновления.
func (r *Refresher) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

func (r *Refresher) run(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.refresh(ctx); err != nil {
		return fmt.Errorf("session/Refresh: %w", err)
	}

	return nil
}

// finish снимает флаг и раздаёт результат очереди в порядке поступления.
func (r *Refresher) finish(err error) {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.inFlight = false
	r.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
}
