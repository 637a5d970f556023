package watermark_service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sunr3d/picture-drm/internal/config"
	"github.com/sunr3d/picture-drm/internal/infra/subprocess"
	"github.com/sunr3d/picture-drm/internal/interfaces/infra"
	"github.com/sunr3d/picture-drm/internal/interfaces/services"
	"github.com/sunr3d/picture-drm/models"
)

var _ services.WatermarkCodec = (*watermarkService)(nil)

// watermarkService - кодек поверх внешних процессов кодирования и декодирования.
type watermarkService struct {
	logger *zap.Logger
	cfg    *config.Config
	runner infra.CommandRunner
}

func New(log *zap.Logger, cfg *config.Config, runner infra.CommandRunner) services.WatermarkCodec {
	return &watermarkService{
		logger: log,
		cfg:    cfg,
		runner: runner,
	}
}

func (s *watermarkService) Encode(ctx context.Context, inputDir, outputDir, secret string) (string, error) {
	job := models.NewWatermarkJob(inputDir, outputDir, secret)
	args := withPrefix(s.cfg.EncoderArgs, inputDir, outputDir, secret)

	if _, err := s.run(ctx, job, s.cfg.EncoderPath, args); err != nil {
		return "", &models.WatermarkJobError{Job: job, Err: fmt.Errorf("%w: %w", ErrEmbedFailed, err)}
	}

	s.logger.Info("водяной знак встроен",
		zap.String("input_dir", inputDir),
		zap.String("output_dir", outputDir),
	)
	return outputDir, nil
}

// Decode не сверяет длину результата с expectedLength, она лишь передается кодеку.
func (s *watermarkService) Decode(ctx context.Context, imageDir string, expectedLength int) (string, error) {
	job := models.NewWatermarkJob(imageDir, "", "")
	args := withPrefix(s.cfg.DecoderArgs, imageDir, strconv.Itoa(expectedLength))

	out, err := s.run(ctx, job, s.cfg.DecoderPath, args)
	if err != nil {
		return "", &models.WatermarkJobError{Job: job, Err: fmt.Errorf("%w: %w", ErrExtractFailed, err)}
	}

	decoded := strings.TrimSpace(out)
	s.logger.Info("водяной знак извлечен",
		zap.String("image_dir", imageDir),
		zap.Int("expected_length", expectedLength),
		zap.Int("decoded_length", len(decoded)),
	)
	return decoded, nil
}

func (s *watermarkService) run(ctx context.Context, job *models.WatermarkJob, executable string, args []string) (string, error) {
	if s.cfg.CodecTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CodecTimeout)
		defer cancel()
	}

	out, err := s.runner.Run(ctx, executable, args)
	if err == nil {
		s.setExitCode(job, 0)
		return out, nil
	}

	code := -1
	var procErr *subprocess.Error
	if errors.As(err, &procErr) {
		code = procErr.ExitCode
		job.CapturedStderr = procErr.Stderr
	}
	s.setExitCode(job, code)

	s.logger.Error("ошибка внешнего кодека",
		zap.String("executable", executable),
		zap.String("input_dir", job.InputDir),
		zap.Int("exit_code", code),
		zap.String("stderr", job.CapturedStderr),
	)
	return "", err
}

func (s *watermarkService) setExitCode(job *models.WatermarkJob, code int) {
	if err := job.SetExitCode(code); err != nil {
		s.logger.Warn("повторная установка кода завершения кодека",
			zap.String("input_dir", job.InputDir),
			zap.Int("exit_code", code),
			zap.Error(err),
		)
	}
}

// Preflight проверяет, что исполняемые файлы кодека доступны.
func Preflight(cfg *config.Config) []subprocess.Status {
	return subprocess.CheckBinaries([]subprocess.Requirement{
		{Name: "watermark encoder", Command: cfg.EncoderPath},
		{Name: "watermark decoder", Command: cfg.DecoderPath},
	})
}

func withPrefix(prefix []string, args ...string) []string {
	out := make([]string, 0, len(prefix)+len(args))
	out = append(out, prefix...)
	return append(out, args...)
}
