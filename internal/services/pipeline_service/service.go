package pipeline_service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sunr3d/picture-drm/internal/config"
	"github.com/sunr3d/picture-drm/internal/infra/subprocess"
	"github.com/sunr3d/picture-drm/internal/interfaces/infra"
	"github.com/sunr3d/picture-drm/internal/interfaces/services"
	"github.com/sunr3d/picture-drm/internal/naming"
	"github.com/sunr3d/picture-drm/models"
)

const materializeWorkers = 4

var _ services.Pipeline = (*pipelineService)(nil)

type pipelineService struct {
	logger  *zap.Logger
	cfg     *config.Config
	builder services.ArchiveBuilder
	codec   services.WatermarkCodec
	runs    infra.RunStore
	now     func() time.Time
}

// артефакты прогона, которые может понадобиться удалить при отказе
type runState struct {
	run             *models.PipelineRun
	archivePath     string
	createdBatchDir string
	createdWMDir    string
}

func New(
	log *zap.Logger,
	cfg *config.Config,
	builder services.ArchiveBuilder,
	codec services.WatermarkCodec,
	runs infra.RunStore,
) services.Pipeline {
	return &pipelineService{
		logger:  log,
		cfg:     cfg,
		builder: builder,
		codec:   codec,
		runs:    runs,
		now:     time.Now,
	}
}

// Process проводит пачку через стадии строго по очереди:
// архив -> встраивание водяного знака -> контрольное извлечение.
// Любой отказ прерывает прогон, повторов нет.
func (s *pipelineService) Process(ctx context.Context, files []models.UploadedFile) (*models.PipelineResult, error) {
	if len(files) == 0 {
		return nil, &StageError{Stage: models.StageReceived, Kind: ErrValidation, Err: ErrNoFiles}
	}

	now := s.now()
	state := &runState{
		run: &models.PipelineRun{
			ID:        uuid.NewString(),
			Stage:     models.StageReceived,
			Files:     originalNames(files),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	reserved, err := s.runs.ReserveRun(ctx, state.run, s.cfg.MaxRunsInProcess)
	if err != nil {
		return nil, fmt.Errorf("не удалось зарегистрировать прогон: %w", err)
	}
	if !reserved {
		return nil, &StageError{
			Stage: models.StageReceived,
			Kind:  ErrServerBusy,
			Err:   fmt.Errorf("в процессе уже %d прогонов", s.cfg.MaxRunsInProcess),
		}
	}

	result, err := s.execute(ctx, state, files)
	if err != nil {
		s.fail(ctx, state, err)
		return nil, err
	}

	return result, nil
}

func (s *pipelineService) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRunGet, err)
	}
	return run, nil
}

func (s *pipelineService) execute(ctx context.Context, state *runState, files []models.UploadedFile) (*models.PipelineResult, error) {
	run := state.run
	log := s.logger.With(zap.String("run_id", run.ID))

	// Archiving
	s.advance(ctx, run, models.StageArchiving)
	job, err := s.builder.Build(ctx, files)
	if job != nil {
		state.archivePath = job.OutputPath
	}
	if err != nil {
		return nil, &StageError{Stage: models.StageArchiving, Kind: ErrIO, Err: err}
	}
	run.ArchiveName = filepath.Base(job.OutputPath)
	s.advance(ctx, run, models.StageArchived)

	// Encoding
	s.advance(ctx, run, models.StageEncoding)
	uploadsDir, err := s.batchDir(state, files)
	if err != nil {
		return nil, &StageError{Stage: models.StageEncoding, Kind: ErrIO, Err: err}
	}
	watermarkedDir := naming.WatermarkDir(uploadsDir, s.cfg.WatermarkSuffix)
	run.WatermarkDir = watermarkedDir

	created, err := ensureDir(watermarkedDir)
	if created {
		state.createdWMDir = watermarkedDir
	}
	if err != nil {
		return nil, &StageError{Stage: models.StageEncoding, Kind: ErrIO, Err: err}
	}

	if _, err := s.codec.Encode(ctx, uploadsDir, watermarkedDir, s.cfg.WatermarkSecret); err != nil {
		return nil, codecError(models.StageEncoding, err)
	}
	s.advance(ctx, run, models.StageEncoded)

	// Decoding
	s.advance(ctx, run, models.StageDecoding)
	decoded, err := s.codec.Decode(ctx, watermarkedDir, len(s.cfg.WatermarkSecret))
	if err != nil {
		return nil, codecError(models.StageDecoding, err)
	}
	run.DecodedWatermark = decoded

	if s.cfg.VerifyWatermark && decoded != s.cfg.WatermarkSecret {
		return nil, &StageError{
			Stage: models.StageDecoding,
			Kind:  ErrVerification,
			Err: fmt.Errorf("извлечено %d байт вместо ожидаемых %d",
				len(decoded), len(s.cfg.WatermarkSecret)),
		}
	}

	result := &models.PipelineResult{
		ArchiveName:       run.ArchiveName,
		ArchiveURL:        strings.TrimSuffix(s.cfg.PublicPrefix, "/") + "/" + run.ArchiveName,
		ArchiveSizeBytes:  job.SizeBytes,
		OriginalFileNames: originalNames(files),
	}
	s.advance(ctx, run, models.StageVerified)

	log.Info("прогон завершен",
		zap.String("archive", result.ArchiveName),
		zap.Int64("size", result.ArchiveSizeBytes),
		zap.Int("files", len(result.OriginalFileNames)),
	)

	return result, nil
}

// batchDir - каталог пачки изображений. Берется по первому файлу.
// Если первый файл только в памяти, пачка выгружается в новый каталог
// под корнем загрузок: у каждого прогона свой вход кодировщика.
func (s *pipelineService) batchDir(state *runState, files []models.UploadedFile) (string, error) {
	if files[0].HasPath() {
		return filepath.Dir(files[0].StoragePath), nil
	}

	dir := filepath.Join(s.cfg.UploadsDir, naming.BatchDirName())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("не удалось создать каталог пачки: %w", err)
	}
	state.createdBatchDir = dir

	now := s.now()
	var g errgroup.Group
	g.SetLimit(materializeWorkers)
	for _, f := range files {
		dst := filepath.Join(dir, naming.StoredFileName(now, f.OriginalName))
		g.Go(func() error {
			if err := materialize(f, dst); err != nil {
				return fmt.Errorf("не удалось выгрузить %s в каталог пачки: %w", f.OriginalName, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	s.logger.Debug("пачка выгружена в новый каталог",
		zap.String("run_id", state.run.ID),
		zap.String("batch_dir", dir),
	)
	return dir, nil
}

// materialize пишет файл пачки в dst: из памяти или копией с диска.
// Файл без источника пропускается, как пустая запись архива.
func materialize(f models.UploadedFile, dst string) error {
	switch {
	case f.HasPath():
		src, err := os.Open(f.StoragePath)
		if err != nil {
			return err
		}
		defer src.Close()

		out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, src); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	case f.HasBuffer():
		return os.WriteFile(dst, f.Buffer, 0644)
	default:
		return nil
	}
}

func (s *pipelineService) advance(ctx context.Context, run *models.PipelineRun, stage models.PipelineStage) {
	run.Stage = stage
	run.UpdatedAt = s.now()
	s.save(ctx, run)
	s.logger.Debug("переход стадии",
		zap.String("run_id", run.ID),
		zap.String("stage", string(stage)),
	)
}

func (s *pipelineService) save(ctx context.Context, run *models.PipelineRun) {
	// реестр прогонов вспомогательный, его отказ не валит конвейер
	if err := s.runs.SaveRun(ctx, run); err != nil {
		s.logger.Warn("не удалось сохранить прогон",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

func (s *pipelineService) fail(ctx context.Context, state *runState, err error) {
	run := state.run

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		run.FailedStage = stageErr.Stage
	} else {
		run.FailedStage = run.Stage
	}
	run.Error = err.Error()
	var jobErr *models.WatermarkJobError
	if errors.As(err, &jobErr) && jobErr.Job != nil {
		if code, ok := jobErr.Job.ExitCode(); ok {
			run.CodecExitCode = &code
		}
		run.CodecStderr = jobErr.Job.CapturedStderr
	}
	run.Stage = models.StageFailed
	run.UpdatedAt = s.now()
	s.save(ctx, run)

	s.logger.Error("прогон завершился ошибкой",
		zap.String("run_id", run.ID),
		zap.String("failed_stage", string(run.FailedStage)),
		zap.Error(err),
	)

	if s.cfg.CleanupOnFailure {
		s.cleanup(state)
	}
}

func (s *pipelineService) cleanup(state *runState) {
	if state.archivePath != "" {
		if err := os.Remove(state.archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("не удалось удалить частичный архив",
				zap.String("path", state.archivePath),
				zap.Error(err),
			)
		}
	}
	if state.createdBatchDir != "" {
		if err := os.RemoveAll(state.createdBatchDir); err != nil {
			s.logger.Error("не удалось удалить каталог пачки",
				zap.String("path", state.createdBatchDir),
				zap.Error(err),
			)
		}
	}
	if state.createdWMDir != "" {
		if err := os.RemoveAll(state.createdWMDir); err != nil {
			s.logger.Error("не удалось удалить каталог водяных знаков",
				zap.String("path", state.createdWMDir),
				zap.Error(err),
			)
		}
	}
}

// ensureDir создает каталог рекурсивно и сообщает, был ли он создан сейчас.
func ensureDir(dir string) (bool, error) {
	_, err := os.Stat(dir)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, err
	}
	return true, nil
}

func codecError(stage models.PipelineStage, err error) error {
	var procErr *subprocess.Error
	if errors.As(err, &procErr) && procErr.Spawn {
		err = fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return &StageError{Stage: stage, Kind: ErrSubprocess, Err: err}
}

func originalNames(files []models.UploadedFile) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.OriginalName)
	}
	return names
}
