package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/retry"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// Значения по умолчанию.
const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 10 * 1024 * 1024 // 10 MB
)

// Result — успешный ответ агента.
type Result struct {
	// StatusCode — HTTP-код ответа.
	StatusCode int

	// Body — тело ответа. Клиент не интерпретирует семантику payload:
	// JSON парсится в map, всё остальное кладётся под ключ "raw".
	Body map[string]any

	// Attempts — количество попыток до успеха.
	Attempts int
}

// Config — конфигурация Client.
type Config struct {
	// Timeout — таймаут одной попытки (default: 30s).
	Timeout time.Duration

	// Retry — политика повторных попыток.
	Retry retry.Config

	// HTTPClient — опциональный http.Client (для тестов).
	HTTPClient *http.Client

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// Client — клиент вызова worker-агентов.
//
// Клиент не знает семантики payload'ов: сериализует запрос,
// десериализует ответ и классифицирует ошибку. Таймаут применяется
// к каждой попытке отдельно; по таймауту вызов отменяется через
// контекст, а не бросается — счётчик попыток остаётся точным.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	retryCfg   retry.Config
	logger     *slog.Logger
}

// New создаёт новый Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		timeout:    timeout,
		retryCfg:   cfg.Retry,
		logger:     logger,
	}
}

// RetryFromPolicy переводит domain.RetryPolicy в конфигурацию
// общего retry-примитива.
func RetryFromPolicy(p *domain.RetryPolicy) retry.Config {
	if p == nil {
		return retry.Config{}
	}
	return retry.Config{
		MaxAttempts:  p.MaxAttempts,
		Strategy:     p.Backoff,
		InitialDelay: time.Duration(p.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(p.MaxDelayMs) * time.Millisecond,
	}
}

// Invoke вызывает агента и возвращает результат или *Failure.
//
// Временные ошибки (connection refused, таймаут, 5xx) повторяются
// согласно политике retry; 4xx возвращается сразу после первой
// попытки как non_retryable.
func (c *Client) Invoke(ctx context.Context, endpoint string, payload map[string]any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Failure{
			Kind:     FailureNonRetryable,
			Endpoint: endpoint,
			Attempts: 0,
			Err:      fmt.Errorf("marshal payload: %w", err),
		}
	}

	attempts := 0
	var result *Result

	retryErr := retry.Do(ctx, c.retryCfg, func() error {
		attempts++
		start := time.Now()

		res, attemptErr := c.attempt(ctx, endpoint, body)
		latency := time.Since(start)

		if attemptErr == nil {
			result = res
			c.logger.Info("agent call succeeded",
				"endpoint", endpoint,
				"attempt", attempts,
				"status", res.StatusCode,
				"latency", latency.Round(time.Millisecond),
			)
			telemetry.AgentAttempts.WithLabelValues("success").Inc()
			return nil
		}

		failure, ok := attemptErr.(*Failure)
		outcome := "retryable_error"
		if ok && !failure.IsRetryable() {
			outcome = "non_retryable_error"
		}
		telemetry.AgentAttempts.WithLabelValues(outcome).Inc()

		c.logger.Warn("agent call failed",
			"endpoint", endpoint,
			"attempt", attempts,
			"outcome", outcome,
			"latency", latency.Round(time.Millisecond),
			"error", attemptErr,
		)

		if ok && !failure.IsRetryable() {
			return retry.Permanent(attemptErr)
		}
		return attemptErr
	})

	if retryErr != nil {
		if failure, ok := retryErr.(*Failure); ok {
			failure.Attempts = attempts
			return nil, failure
		}
		// Отмена контекста между попытками.
		return nil, &Failure{
			Kind:     FailureRetryable,
			Endpoint: endpoint,
			Attempts: attempts,
			Err:      retryErr,
		}
	}

	result.Attempts = attempts
	return result, nil
}

// attempt выполняет одну попытку вызова.
func (c *Client) attempt(ctx context.Context, endpoint string, body []byte) (*Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Failure{
			Kind:     FailureNonRetryable,
			Endpoint: endpoint,
			Err:      fmt.Errorf("build request: %w", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Транспортная ошибка или таймаут попытки — временная.
		return nil, &Failure{
			Kind:     FailureRetryable,
			Endpoint: endpoint,
			Err:      fmt.Errorf("%w: %v", ErrAgentUnavailable, err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &Failure{
			Kind:       FailureRetryable,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read response: %w", err),
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return &Result{
			StatusCode: resp.StatusCode,
			Body:       parseBody(respBody),
		}, nil

	case resp.StatusCode >= 500:
		return nil, &Failure{
			Kind:       FailureRetryable,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server error: %s", truncate(string(respBody), 200)),
		}

	default:
		// 4xx и прочие неожиданные коды — постоянная ошибка.
		return nil, &Failure{
			Kind:       FailureNonRetryable,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("client error: %s", truncate(string(respBody), 200)),
		}
	}
}

// parseBody парсит тело ответа: пробуем JSON-объект, иначе "raw".
func parseBody(body []byte) map[string]any {
	if len(body) == 0 {
		return map[string]any{}
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed
	}
	return map[string]any{"raw": string(body)}
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
