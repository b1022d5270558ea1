package errs

import "errors"

// Виды ошибок ядра. Слой маршрутов сопоставляет каждому виду HTTP статус,
// поэтому все ошибки сервисов оборачивают один из них через %w.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrStorage         = errors.New("storage failure")
	ErrInvalidArgument = errors.New("invalid argument")
)
