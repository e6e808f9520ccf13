package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/repo"
)

// fakeRunCreator записывает созданные runs и отвергает дубликаты по id.
type fakeRunCreator struct {
	mu   sync.Mutex
	runs map[string]*domain.Run
}

func newFakeRunCreator() *fakeRunCreator {
	return &fakeRunCreator{runs: make(map[string]*domain.Run)}
}

func (f *fakeRunCreator) Create(ctx context.Context, run *domain.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.runs[run.ID]; exists {
		return repo.ErrAlreadyExists
	}
	copied := *run
	f.runs[run.ID] = &copied
	return nil
}

func (f *fakeRunCreator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func (f *fakeRunCreator) get(id string) *domain.Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[id]
}

func everyMinuteTrigger() Trigger {
	return Trigger{
		Name:   "recs",
		Cron:   "* * * * *",
		UserID: "u-1",
		Mode:   domain.ModeNormal,
		Config: map[string]any{"max_items": 5},
	}
}

func TestTick_FiresDueTrigger(t *testing.T) {
	runs := newFakeRunCreator()
	s := New(Config{Runs: runs, Triggers: []Trigger{everyMinuteTrigger()}})

	base := time.Date(2026, 8, 24, 12, 0, 30, 0, time.UTC)

	// Первый тик только взводит расписание
	if err := s.Tick(context.Background(), base); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if runs.count() != 0 {
		t.Fatalf("runs created on arming tick = %d, want 0", runs.count())
	}

	// Второй тик после next_due — триггер срабатывает
	if err := s.Tick(context.Background(), base.Add(time.Minute)); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if runs.count() != 1 {
		t.Fatalf("runs created = %d, want 1", runs.count())
	}

	due := time.Date(2026, 8, 24, 12, 1, 0, 0, time.UTC)
	run := runs.get(RunID("recs", due))
	if run == nil {
		t.Fatalf("run with deterministic id %q not created", RunID("recs", due))
	}
	if run.UserID != "u-1" || run.Status != domain.RunStatusPending {
		t.Errorf("run = %+v, want u-1/PENDING", run)
	}
	if run.Config["max_items"] != 5 {
		t.Errorf("run config = %v, want trigger config", run.Config)
	}
}

func TestTick_DuplicateIgnored(t *testing.T) {
	runs := newFakeRunCreator()
	trigger := everyMinuteTrigger()

	// Два scheduler'а с одинаковыми триггерами
	s1 := New(Config{Runs: runs, Triggers: []Trigger{trigger}})
	s2 := New(Config{Runs: runs, Triggers: []Trigger{trigger}})

	base := time.Date(2026, 8, 24, 12, 0, 30, 0, time.UTC)
	fire := base.Add(time.Minute)

	s1.Tick(context.Background(), base)
	s2.Tick(context.Background(), base)

	if err := s1.Tick(context.Background(), fire); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if err := s2.Tick(context.Background(), fire); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if runs.count() != 1 {
		t.Errorf("runs created = %d, want 1 (duplicate ignored)", runs.count())
	}
}

func TestTick_NotDueNotFired(t *testing.T) {
	runs := newFakeRunCreator()
	s := New(Config{Runs: runs, Triggers: []Trigger{everyMinuteTrigger()}})

	base := time.Date(2026, 8, 24, 12, 0, 10, 0, time.UTC)
	s.Tick(context.Background(), base)
	s.Tick(context.Background(), base.Add(10*time.Second))

	if runs.count() != 0 {
		t.Errorf("runs created = %d, want 0 before due time", runs.count())
	}
}

func TestValidateTriggers(t *testing.T) {
	tests := []struct {
		name     string
		triggers []Trigger
		wantErr  bool
	}{
		{
			name:     "valid",
			triggers: []Trigger{everyMinuteTrigger()},
			wantErr:  false,
		},
		{
			name:     "empty name",
			triggers: []Trigger{{Cron: "* * * * *", UserID: "u-1"}},
			wantErr:  true,
		},
		{
			name: "duplicate name",
			triggers: []Trigger{
				everyMinuteTrigger(),
				everyMinuteTrigger(),
			},
			wantErr: true,
		},
		{
			name:     "missing user_id",
			triggers: []Trigger{{Name: "t", Cron: "* * * * *"}},
			wantErr:  true,
		},
		{
			name:     "bad cron",
			triggers: []Trigger{{Name: "t", Cron: "not-cron", UserID: "u-1"}},
			wantErr:  true,
		},
		{
			name:     "bad mode",
			triggers: []Trigger{{Name: "t", Cron: "* * * * *", UserID: "u-1", Mode: "sandbox"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTriggers(tt.triggers)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTriggers() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTriggers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triggers.yaml")
	content := `
triggers:
  - name: nightly-recs
    cron: "0 3 * * *"
    user_id: u-1
    mode: development
    config:
      max_items: 20
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	triggers, err := LoadTriggers(path)
	if err != nil {
		t.Fatalf("LoadTriggers() error = %v", err)
	}
	if len(triggers) != 1 {
		t.Fatalf("len(triggers) = %d, want 1", len(triggers))
	}
	trigger := triggers[0]
	if trigger.Name != "nightly-recs" || trigger.Mode != domain.ModeDevelopment {
		t.Errorf("trigger = %+v", trigger)
	}
	if trigger.Config["max_items"] != 20 {
		t.Errorf("config max_items = %v, want 20", trigger.Config["max_items"])
	}
}
