package watermark_service

import "errors"

var (
	ErrEmbedFailed   = errors.New("не удалось встроить водяной знак")
	ErrExtractFailed = errors.New("не удалось извлечь водяной знак")
)
