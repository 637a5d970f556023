package models

import "errors"

var ErrExitCodeAlreadySet = errors.New("код завершения уже установлен")

// WatermarkJob - один вызов внешнего кодека (encode или decode).
type WatermarkJob struct {
	InputDir       string
	OutputDir      string
	SecretPayload  string
	CapturedStderr string

	exitCode *int
}

func NewWatermarkJob(inputDir, outputDir, secret string) *WatermarkJob {
	return &WatermarkJob{
		InputDir:      inputDir,
		OutputDir:     outputDir,
		SecretPayload: secret,
	}
}

// SetExitCode фиксирует код завершения. Повторная установка запрещена.
func (j *WatermarkJob) SetExitCode(code int) error {
	if j.exitCode != nil {
		return ErrExitCodeAlreadySet
	}
	j.exitCode = &code
	return nil
}

func (j *WatermarkJob) ExitCode() (int, bool) {
	if j.exitCode == nil {
		return 0, false
	}
	return *j.exitCode, true
}

// WatermarkJobError - отказ вызова кодека вместе с его заданием.
type WatermarkJobError struct {
	Job *WatermarkJob
	Err error
}

func (e *WatermarkJobError) Error() string {
	return e.Err.Error()
}

func (e *WatermarkJobError) Unwrap() error {
	return e.Err
}
