package gate

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/shaiso/Conveyor/internal/retry"
)

// Значения по умолчанию.
const (
	DefaultMaxAttempts = 30
	DefaultInterval    = 2 * time.Second

	probeTimeout = 3 * time.Second
)

// Target — проверяемая зависимость.
type Target interface {
	// Probe выполняет одну проверку доступности.
	Probe(ctx context.Context) error

	// Name возвращает человекочитаемое имя цели для логов и ошибок.
	Name() string
}

// HTTPTarget — health-endpoint реестра агентов.
// Цель готова при любом 2xx ответе.
type HTTPTarget struct {
	// URL — полный адрес health-endpoint'а, например
	// "http://registry:8500/health".
	URL string

	client *http.Client
}

// NewHTTPTarget создаёт HTTPTarget.
func NewHTTPTarget(url string) *HTTPTarget {
	return &HTTPTarget{
		URL:    url,
		client: &http.Client{Timeout: probeTimeout},
	}
}

// Name возвращает имя цели.
func (t *HTTPTarget) Name() string {
	return t.URL
}

// Probe выполняет GET запрос; успех — любой 2xx.
func (t *HTTPTarget) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Код ответа логируется как есть — для диагностики.
		return fmt.Errorf("unhealthy status %d", resp.StatusCode)
	}
	return nil
}

// TCPTarget — прямая зависимость (например, порт БД).
// Цель готова при успешном TCP connect; payload не передаётся.
type TCPTarget struct {
	// Addr — адрес в формате host:port.
	Addr string
}

// NewTCPTarget создаёт TCPTarget.
func NewTCPTarget(addr string) *TCPTarget {
	return &TCPTarget{Addr: addr}
}

// Name возвращает имя цели.
func (t *TCPTarget) Name() string {
	return "tcp://" + t.Addr
}

// Probe выполняет TCP connect.
func (t *TCPTarget) Probe(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// TimeoutError — цель не стала доступной за отведённый бюджет попыток.
type TimeoutError struct {
	// Target — имя цели, не прошедшей проверку.
	Target string

	// Attempts — количество выполненных попыток.
	Attempts int

	// LastErr — ошибка последней попытки.
	LastErr error
}

// Error реализует интерфейс error.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("target %s not ready after %d attempts: %v", e.Target, e.Attempts, e.LastErr)
}

// Unwrap возвращает ошибку последней попытки.
func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// AwaitReady блокирует до готовности всех целей.
//
// Каждая цель опрашивается с фиксированным интервалом до maxAttempts
// раз. Если хотя бы одна цель не стала доступной, возвращается
// *TimeoutError с именем этой цели — вызывающая сторона обязана
// считать это фатальным и не принимать запросы на выполнение.
func AwaitReady(ctx context.Context, logger *slog.Logger, targets []Target, maxAttempts int, interval time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	for _, target := range targets {
		if err := awaitTarget(ctx, logger, target, maxAttempts, interval); err != nil {
			return err
		}
	}
	return nil
}

// awaitTarget опрашивает одну цель до готовности или исчерпания бюджета.
func awaitTarget(ctx context.Context, logger *slog.Logger, target Target, maxAttempts int, interval time.Duration) error {
	start := time.Now()
	attempt := 0

	var lastErr error

	cfg := retry.Config{
		MaxAttempts:  maxAttempts,
		Strategy:     retry.StrategyFixed,
		InitialDelay: interval,
	}

	err := retry.DoNotify(ctx, cfg,
		func() error {
			attempt++

			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			if err := target.Probe(probeCtx); err != nil {
				lastErr = err
				logger.Info("waiting for dependency",
					"target", target.Name(),
					"attempt", attempt,
					"max_attempts", maxAttempts,
					"elapsed", time.Since(start).Round(time.Millisecond),
					"error", err,
				)
				return err
			}

			logger.Info("dependency ready",
				"target", target.Name(),
				"attempt", attempt,
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			return nil
		},
		nil,
	)

	if err != nil {
		return &TimeoutError{
			Target:   target.Name(),
			Attempts: attempt,
			LastErr:  lastErr,
		}
	}
	return nil
}
