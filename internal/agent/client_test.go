package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/retry"
)

func testClient(t *testing.T, retryCfg retry.Config, timeout time.Duration) *Client {
	t.Helper()
	return New(Config{
		Timeout: timeout,
		Retry:   retryCfg,
	})
}

func fastRetry(maxAttempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  maxAttempts,
		Strategy:     "fixed",
		InitialDelay: 5 * time.Millisecond,
	}
}

func TestInvoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"profile": {"user_id": "u-1"}}`))
	}))
	defer server.Close()

	client := testClient(t, fastRetry(3), time.Second)

	result, err := client.Invoke(context.Background(), server.URL, map[string]any{"user_id": "u-1"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if _, ok := result.Body["profile"]; !ok {
		t.Errorf("Body missing 'profile' key: %v", result.Body)
	}
}

func TestInvoke_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := testClient(t, fastRetry(3), time.Second)

	result, err := client.Invoke(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestInvoke_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(t, fastRetry(3), time.Second)

	_, err := client.Invoke(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("Invoke() expected error")
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %T, want *Failure", err)
	}
	if failure.Kind != FailureRetryable {
		t.Errorf("Kind = %s, want %s", failure.Kind, FailureRetryable)
	}
	if failure.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", failure.Attempts)
	}
	if failure.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", failure.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestInvoke_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, fastRetry(3), time.Second)

	_, err := client.Invoke(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("Invoke() expected error")
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %T, want *Failure", err)
	}
	if failure.Kind != FailureNonRetryable {
		t.Errorf("Kind = %s, want %s", failure.Kind, FailureNonRetryable)
	}
	if failure.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", failure.Attempts)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

func TestInvoke_TimeoutRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := testClient(t, fastRetry(2), 20*time.Millisecond)

	_, err := client.Invoke(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("Invoke() expected error")
	}
	if !errors.Is(err, ErrAgentUnavailable) {
		t.Errorf("error = %v, want wrapped ErrAgentUnavailable", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

func TestInvoke_ConnectionRefused(t *testing.T) {
	client := testClient(t, fastRetry(2), time.Second)

	_, err := client.Invoke(context.Background(), "http://127.0.0.1:1/agent", nil)
	if err == nil {
		t.Fatal("Invoke() expected error")
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error = %T, want *Failure", err)
	}
	if !failure.IsRetryable() {
		t.Error("connection refused should be retryable")
	}
	if failure.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", failure.Attempts)
	}
}

func TestInvoke_SendsPayload(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := testClient(t, fastRetry(1), time.Second)

	_, err := client.Invoke(context.Background(), server.URL, map[string]any{
		"user_id": "u-42",
		"mode":    "normal",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if received["user_id"] != "u-42" {
		t.Errorf("payload user_id = %v, want u-42", received["user_id"])
	}
	if received["mode"] != "normal" {
		t.Errorf("payload mode = %v, want normal", received["mode"])
	}
}

func TestInvoke_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text response"))
	}))
	defer server.Close()

	client := testClient(t, fastRetry(1), time.Second)

	result, err := client.Invoke(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result.Body["raw"] != "plain text response" {
		t.Errorf("Body = %v, want raw key with original text", result.Body)
	}
}

func TestInvoke_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := testClient(t, fastRetry(5), time.Second)

	_, err := client.Invoke(ctx, server.URL, nil)
	if err == nil {
		t.Fatal("Invoke() expected error")
	}
}

func TestRetryFromPolicy(t *testing.T) {
	cfg := RetryFromPolicy(nil)
	if cfg.MaxAttempts != 0 {
		t.Errorf("nil policy MaxAttempts = %d, want 0", cfg.MaxAttempts)
	}

	cfg = RetryFromPolicy(&domain.RetryPolicy{
		MaxAttempts:    5,
		Backoff:        "exponential",
		InitialDelayMs: 100,
		MaxDelayMs:     2000,
	})
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.Strategy != "exponential" {
		t.Errorf("Strategy = %s, want exponential", cfg.Strategy)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 100ms", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 2*time.Second {
		t.Errorf("MaxDelay = %v, want 2s", cfg.MaxDelay)
	}
}
