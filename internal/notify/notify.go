// notify — уведомления пользователя вместо тостов и баннеров веб-клиента.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind — тип уведомления.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Время автоскрытия тостов.
const (
	ShortTTL = 4 * time.Second
	LongTTL  = 5 * time.Second
)

// Notice — одно уведомление. Persistent — баннер, который не скрывается сам.
type Notice struct {
	Kind       Kind
	Message    string
	TTL        time.Duration
	Persistent bool
}

// Notifier доставляет уведомления пользователю.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Toast — временное уведомление: 4с для success/info, 5с для error/warning.
func Toast(kind Kind, msg string) Notice {
	ttl := ShortTTL
	if kind == KindError || kind == KindWarning {
		ttl = LongTTL
	}

	return Notice{Kind: kind, Message: msg, TTL: ttl}
}

// Banner — постоянное предупреждение.
func Banner(kind Kind, msg string) Notice {
	return Notice{Kind: kind, Message: msg, Persistent: true}
}

// Logger пишет уведомления в slog; используется CLI.
type Logger struct {
	log *slog.Logger
}

func NewLogger(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}

	return &Logger{log: log}
}

func (l *Logger) Notify(ctx context.Context, n Notice) {
	level := slog.LevelInfo
	switch n.Kind {
	case KindWarning:
		level = slog.LevelWarn
	case KindError:
		level = slog.LevelError
	}

	l.log.Log(ctx, level, "notice",
		slog.String("kind", string(n.Kind)),
		slog.String("message", n.Message),
		slog.Bool("persistent", n.Persistent),
	)
}

// Recorder запоминает уведомления; безопасен для конкурентного использования.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices возвращает копию накопленных уведомлений.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Count — сколько уведомлений с данным сообщением получено.
func (r *Recorder) Count(msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, v := range r.notices {
		if v.Message == msg {
			n++
		}
	}

	return n
}

// Multi рассылает уведомление всем получателям по очереди.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, v := range m {
		if v != nil {
			v.Notify(ctx, n)
		}
	}
}
