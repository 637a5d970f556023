package subprocess

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sunr3d/picture-drm/internal/interfaces/infra"
)

const waitDelay = 300 * time.Millisecond

var _ infra.CommandRunner = (*runner)(nil)

type runner struct {
	logger *zap.Logger
}

func New(log *zap.Logger) infra.CommandRunner {
	return &runner{logger: log}
}

// Run запускает executable с аргументами как есть, без shell.
// Код 0 - возвращается накопленный stdout, иначе *Error с накопленным stderr.
// Собственного таймаута нет, ограничение задается через ctx.
func (r *runner) Run(ctx context.Context, executable string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec

	var stdout strings.Builder
	var stderr bytes.Buffer
	cmd.Stdout = &chunkWriter{logger: r.logger, executable: executable, dst: &stdout}
	cmd.Stderr = &stderr
	// после отмены ctx или выхода процесса пайпы, удерживаемые потомками,
	// закрываются принудительно через waitDelay
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return "", r.spawnError(executable, args, err)
	}

	r.logger.Debug("процесс запущен",
		zap.String("executable", executable),
		zap.Strings("args", args),
		zap.Int("pid", cmd.Process.Pid),
	)

	waitErr := cmd.Wait()
	if waitErr == nil {
		return stdout.String(), nil
	}

	procErr := &Error{
		Executable: executable,
		Args:       args,
		ExitCode:   -1,
		Stderr:     stderr.String(),
		Err:        waitErr,
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		procErr.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		procErr.Err = ctx.Err()
	}

	r.logger.Error("процесс завершился с ошибкой",
		zap.String("executable", executable),
		zap.Int("exit_code", procErr.ExitCode),
		zap.String("stderr", procErr.Stderr),
	)

	return "", procErr
}

// chunkWriter копит stdout и пишет в debug каждый полученный кусок.
type chunkWriter struct {
	logger     *zap.Logger
	executable string
	dst        *strings.Builder
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.dst.Write(p)
	w.logger.Debug("вывод процесса",
		zap.String("executable", w.executable),
		zap.ByteString("chunk", p),
	)
	return len(p), nil
}

func (r *runner) spawnError(executable string, args []string, err error) error {
	r.logger.Error("не удалось запустить процесс",
		zap.String("executable", executable),
		zap.Error(err),
	)
	return &Error{
		Executable: executable,
		Args:       args,
		ExitCode:   -1,
		Spawn:      true,
		Err:        err,
	}
}
