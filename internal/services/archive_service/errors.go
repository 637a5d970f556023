package archive_service

import "errors"

var (
	ErrContextDone = errors.New("отмена контекста")

	ErrNoFiles = errors.New("не передано ни одного файла")

	ErrMkdirFailed      = errors.New("не удалось создать директорию")
	ErrFileCreateFailed = errors.New("не удалось создать файл архива")
	ErrEntryFailed      = errors.New("не удалось создать запись в архиве")
	ErrFileOpenFailed   = errors.New("не удалось открыть файл")
	ErrFileCopyFailed   = errors.New("не удалось записать файл в архив")
	ErrFinalizeFailed   = errors.New("не удалось завершить архив")
	ErrStatFailed       = errors.New("не удалось получить размер архива")
)
