package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	wantErr := errors.New("still failing")

	err := Do(context.Background(), Config{MaxAttempts: 4, InitialDelay: time.Millisecond}, func() error {
		attempts++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	attempts := 0
	wantErr := errors.New("bad request")

	err := Do(context.Background(), Config{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		attempts++
		return Permanent(wantErr)
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, Config{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond}, func() error {
		attempts++
		cancel()
		return errors.New("transient")
	})

	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestDoNotify_CalledBetweenAttempts(t *testing.T) {
	notified := 0
	attempts := 0

	err := DoNotify(context.Background(), Config{MaxAttempts: 3, InitialDelay: time.Millisecond},
		func() error {
			attempts++
			return errors.New("transient")
		},
		func(err error, delay time.Duration) {
			notified++
		},
	)

	if err == nil {
		t.Fatal("expected error")
	}
	// Уведомление приходит после каждой неудачной попытки, кроме последней.
	if notified != 2 {
		t.Errorf("expected 2 notifications, got %d", notified)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}
