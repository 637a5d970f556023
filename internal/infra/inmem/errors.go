package inmem

import "errors"

var (
	ErrRunNotFound = errors.New("прогон не найден")
	ErrRunNil      = errors.New("прогон не может быть nil")
	ErrRunIDEmpty  = errors.New("ID прогона не может быть пустым")
	ErrContextDone = errors.New("отмена контекста")
)
