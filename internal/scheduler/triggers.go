package scheduler

import (
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Conveyor/internal/domain"
)

// cronParser — парсер cron-выражений (стандартные 5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Trigger — периодический запуск пайплайна по cron-выражению.
//
// Триггеры — статическая конфигурация: загружаются из YAML файла
// при старте scheduler'а.
type Trigger struct {
	// Name — уникальное имя триггера; участвует в детерминированном
	// идентификаторе run.
	Name string `yaml:"name"`

	// Cron — cron-выражение (5 полей).
	Cron string `yaml:"cron"`

	// UserID — пользователь, для которого создаётся run.
	UserID string `yaml:"user_id"`

	// Mode — режим выполнения (default: normal).
	Mode domain.Mode `yaml:"mode"`

	// Config — конфигурация пайплайна создаваемого run.
	Config map[string]any `yaml:"config"`
}

// TriggerFile — формат YAML файла с триггерами.
type TriggerFile struct {
	Triggers []Trigger `yaml:"triggers"`
}

// LoadTriggers загружает триггеры из YAML файла.
//
// Формат:
//
//	triggers:
//	  - name: nightly-recs
//	    cron: "0 3 * * *"
//	    user_id: u-1
//	    mode: normal
//	    config:
//	      max_items: 20
func LoadTriggers(path string) ([]Trigger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read triggers file: %w", err)
	}

	var file TriggerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse triggers file: %w", err)
	}

	if err := ValidateTriggers(file.Triggers); err != nil {
		return nil, err
	}
	return file.Triggers, nil
}

// ValidateTriggers проверяет корректность триггеров.
func ValidateTriggers(triggers []Trigger) error {
	seen := make(map[string]bool, len(triggers))
	for i := range triggers {
		t := &triggers[i]

		if t.Name == "" {
			return fmt.Errorf("trigger %d has empty name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate trigger name %q", t.Name)
		}
		seen[t.Name] = true

		if t.UserID == "" {
			return fmt.Errorf("trigger %q has no user_id", t.Name)
		}
		if _, err := cronParser.Parse(t.Cron); err != nil {
			return fmt.Errorf("trigger %q: invalid cron expression %q: %w", t.Name, t.Cron, err)
		}
		if t.Mode != "" && !t.Mode.Valid() {
			return fmt.Errorf("trigger %q: invalid mode %q", t.Name, t.Mode)
		}
	}
	return nil
}
