package config

import "errors"

// Ошибки нормализации конфигурации.
var (
	// ErrMissingField — обязательное поле отсутствует.
	ErrMissingField = errors.New("required field is missing")

	// ErrInvalidField — поле имеет недопустимое значение или тип.
	ErrInvalidField = errors.New("field has invalid value")

	// ErrUnsupportedShape — входная конфигурация не является ни
	// канонической структурой, ни map'ой.
	ErrUnsupportedShape = errors.New("unsupported config shape")
)

// ValidationError — ошибка валидации конфигурации с контекстом.
//
// Фатальна для run: выполнение прерывается до первого шага.
type ValidationError struct {
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config field " + e.Field + ": " + e.Message
	}
	return "config: " + e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
