package storage

import (
	"context"
	"fmt"

	"github.com/MohamedElaraby99/socrates-sub000/internal/config"
)

// Opener открывает конкретный драйвер. Набор драйверов передаёт вызывающий,
// чтобы storage не зависел от своих реализаций.
type Opener func(ctx context.Context, cfg config.StorageConfig) (Store, error)

// Open выбирает драйвер по cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, drivers map[string]Opener) (Store, error) {
	const op = "storage/Open"

	open, ok := drivers[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("%s: unknown driver %q", op, cfg.Driver)
	}

	st, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, cfg.Driver, err)
	}

	return st, nil
}
