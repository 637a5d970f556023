package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/sunr3d/picture-drm/internal/naming"
	"github.com/sunr3d/picture-drm/models"
)

var (
	errNotImage     = errors.New("допускаются только изображения")
	errFileTooLarge = errors.New("превышен допустимый размер файла")
)

// saveParts сохраняет части формы в dir под сгенерированными именами,
// сохраняя порядок. Проверки выполняются до записи каждого файла.
func saveParts(dir string, headers []*multipart.FileHeader, imagesOnly bool, maxSize int64) ([]models.UploadedFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию: %w", err)
	}

	files := make([]models.UploadedFile, 0, len(headers))
	for _, h := range headers {
		file, err := savePart(dir, h, imagesOnly, maxSize)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Filename, err)
		}
		files = append(files, file)
	}

	return files, nil
}

func savePart(dir string, h *multipart.FileHeader, imagesOnly bool, maxSize int64) (models.UploadedFile, error) {
	if h.Size > maxSize {
		return models.UploadedFile{}, errFileTooLarge
	}

	src, err := h.Open()
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("не удалось открыть часть формы: %w", err)
	}
	defer src.Close()

	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("не удалось определить тип файла: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return models.UploadedFile{}, fmt.Errorf("не удалось перемотать файл: %w", err)
	}

	mimeType := h.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = detected.String()
	}

	if imagesOnly && (!isImage(mimeType) || !isImage(detected.String())) {
		return models.UploadedFile{}, errNotImage
	}

	path := filepath.Join(dir, naming.StoredFileName(time.Now(), h.Filename))
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return models.UploadedFile{}, fmt.Errorf("не удалось создать файл: %w", err)
	}

	written, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(path)
		return models.UploadedFile{}, fmt.Errorf("не удалось сохранить файл: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return models.UploadedFile{}, fmt.Errorf("не удалось сохранить файл: %w", err)
	}

	return models.UploadedFile{
		OriginalName: h.Filename,
		StoragePath:  path,
		MimeType:     mimeType,
		SizeBytes:    written,
	}, nil
}

func isImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}
