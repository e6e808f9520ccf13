package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Значения по умолчанию.
const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = time.Second
	defaultMaxDelay     = 30 * time.Second
)

// Стратегии задержки между попытками.
const (
	StrategyFixed       = "fixed"
	StrategyExponential = "exponential"
)

// Config — настройки повторных попыток.
//
// Один и тот же примитив используют Readiness Gate (фиксированный
// интервал, ограниченный бюджет попыток) и клиент агентов
// (fixed/exponential backoff между попытками вызова).
type Config struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int

	// Strategy — стратегия задержки: StrategyFixed или StrategyExponential.
	Strategy string

	// InitialDelay — начальная задержка между попытками.
	InitialDelay time.Duration

	// MaxDelay — максимальная задержка (для exponential).
	MaxDelay time.Duration
}

// withDefaults возвращает конфигурацию с заполненными значениями по умолчанию.
func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Strategy == "" {
		c.Strategy = StrategyFixed
	}
	return c
}

// newBackOff строит backoff.BackOff по конфигурации.
func (c Config) newBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff

	switch c.Strategy {
	case StrategyExponential:
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = c.InitialDelay
		eb.MaxInterval = c.MaxDelay
		eb.MaxElapsedTime = 0 // бюджет ограничен количеством попыток
		b = eb
	default:
		b = backoff.NewConstantBackOff(c.InitialDelay)
	}

	b = backoff.WithMaxRetries(b, uint64(c.MaxAttempts-1))
	return backoff.WithContext(b, ctx)
}

// Permanent помечает ошибку как неповторяемую: Do вернёт её сразу,
// без дальнейших попыток.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do выполняет op с повторными попытками согласно конфигурации.
//
// Повторяются все ошибки, кроме помеченных Permanent. Отмена ctx
// прерывает ожидание между попытками.
func Do(ctx context.Context, cfg Config, op func() error) error {
	return DoNotify(ctx, cfg, op, nil)
}

// DoNotify — как Do, но с уведомлением после каждой неудачной попытки
// (до ожидания задержки).
func DoNotify(ctx context.Context, cfg Config, op func() error, notify func(err error, delay time.Duration)) error {
	cfg = cfg.withDefaults()

	var n backoff.Notify
	if notify != nil {
		n = backoff.Notify(notify)
	}

	return backoff.RetryNotify(op, cfg.newBackOff(ctx), n)
}
