package pipeline_service

import (
	"errors"
	"fmt"

	"github.com/sunr3d/picture-drm/models"
)

// Классы отказов. StageError.Kind всегда один из них.
var (
	ErrValidation    = errors.New("ошибка валидации")
	ErrIO            = errors.New("ошибка ввода-вывода")
	ErrSubprocess    = errors.New("ошибка внешнего процесса")
	ErrConfiguration = errors.New("ошибка конфигурации")
	ErrVerification  = errors.New("водяной знак не прошел проверку")
	ErrServerBusy    = errors.New("сервер занят, достигнут лимит одновременных прогонов")
)

var (
	ErrNoFiles = errors.New("не передано ни одного файла")
	ErrRunGet  = errors.New("не удалось получить прогон")
)

// StageError - отказ конкретной стадии конвейера.
type StageError struct {
	Stage models.PipelineStage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("стадия %s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
