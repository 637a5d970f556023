package archive_service

import (
	"archive/zip"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sunr3d/picture-drm/internal/config"
	"github.com/sunr3d/picture-drm/internal/interfaces/services"
	"github.com/sunr3d/picture-drm/internal/naming"
	"github.com/sunr3d/picture-drm/models"
)

var _ services.ArchiveBuilder = (*archiveService)(nil)

type archiveService struct {
	logger *zap.Logger
	cfg    *config.Config
	now    func() time.Time
}

func New(log *zap.Logger, cfg *config.Config) services.ArchiveBuilder {
	return &archiveService{
		logger: log,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Build упаковывает файлы в новый zip в каталоге загрузок, сохраняя порядок
// и исходные имена. Успех возвращается только после закрытия файла на диске.
// При ошибке job возвращается вместе с ней, частичный архив не удаляется.
func (s *archiveService) Build(ctx context.Context, files []models.UploadedFile) (*models.ArchiveJob, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	if err := os.MkdirAll(s.cfg.UploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMkdirFailed, err)
	}

	now := s.now()
	job := &models.ArchiveJob{
		OutputPath: filepath.Join(s.cfg.UploadsDir, naming.ArchiveName(now)),
		Entries:    make([]string, 0, len(files)),
		Status:     models.ArchiveStatusBuilding,
		CreatedAt:  now,
	}

	if err := s.buildZip(ctx, job, files); err != nil {
		job.Status = models.ArchiveStatusFailed
		s.logger.Error("не удалось собрать архив",
			zap.String("path", job.OutputPath),
			zap.Int("written_entries", len(job.Entries)),
			zap.Error(err),
		)
		return job, err
	}

	job.Status = models.ArchiveStatusClosed
	s.logger.Info("архив собран",
		zap.String("path", job.OutputPath),
		zap.Int("entries", len(job.Entries)),
		zap.Int64("size", job.SizeBytes),
	)

	return job, nil
}

func (s *archiveService) buildZip(ctx context.Context, job *models.ArchiveJob, files []models.UploadedFile) error {
	zipFile, err := os.OpenFile(job.OutputPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileCreateFailed, err)
	}

	zipWriter := zip.NewWriter(zipFile)
	zipWriter.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			zipFile.Close()
			return fmt.Errorf("%w: %v", ErrContextDone, err)
		}

		if err := s.addEntry(zipWriter, file, job.CreatedAt); err != nil {
			zipFile.Close()
			return err
		}
		job.Entries = append(job.Entries, file.OriginalName)
	}

	if err := zipWriter.Close(); err != nil {
		zipFile.Close()
		return fmt.Errorf("%w: %v", ErrFinalizeFailed, err)
	}
	if err := zipFile.Sync(); err != nil {
		zipFile.Close()
		return fmt.Errorf("%w: %v", ErrFinalizeFailed, err)
	}
	if err := zipFile.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrFinalizeFailed, err)
	}

	info, err := os.Stat(job.OutputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStatFailed, err)
	}
	job.SizeBytes = info.Size()

	return nil
}

func (s *archiveService) addEntry(zipWriter *zip.Writer, file models.UploadedFile, modified time.Time) error {
	header := &zip.FileHeader{
		Name:     file.OriginalName,
		Method:   zip.Deflate,
		Modified: modified,
	}

	w, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEntryFailed, file.OriginalName, err)
	}

	switch {
	case file.HasPath():
		src, err := os.Open(file.StoragePath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFileOpenFailed, err)
		}
		defer src.Close()

		if _, err := io.Copy(w, src); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFileCopyFailed, file.OriginalName, err)
		}
	case file.HasBuffer():
		if _, err := w.Write(file.Buffer); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFileCopyFailed, file.OriginalName, err)
		}
	default:
		s.logger.Warn("у файла нет ни пути, ни содержимого, записана пустая запись",
			zap.String("filename", file.OriginalName),
		)
	}

	return nil
}
