package models

import "time"

type PipelineStage string

const (
	StageReceived  PipelineStage = "received"
	StageArchiving PipelineStage = "archiving"
	StageArchived  PipelineStage = "archived"
	StageEncoding  PipelineStage = "encoding"
	StageEncoded   PipelineStage = "encoded"
	StageDecoding  PipelineStage = "decoding"
	StageVerified  PipelineStage = "verified"
	StageFailed    PipelineStage = "failed"
)

// Terminal сообщает, что из стадии больше нет переходов.
func (s PipelineStage) Terminal() bool {
	return s == StageVerified || s == StageFailed
}

type PipelineResult struct {
	ArchiveName       string   `json:"zipName"`
	ArchiveURL        string   `json:"zipUrl"`
	ArchiveSizeBytes  int64    `json:"size"`
	OriginalFileNames []string `json:"files"`
}

// PipelineRun - запись о прогоне конвейера в реестре.
type PipelineRun struct {
	ID               string        `json:"id"`
	Stage            PipelineStage `json:"stage"`
	FailedStage      PipelineStage `json:"failed_stage,omitempty"`
	Error            string        `json:"error,omitempty"`
	Files            []string      `json:"files"`
	ArchiveName      string        `json:"archive_name,omitempty"`
	WatermarkDir     string        `json:"watermark_dir,omitempty"`
	DecodedWatermark string        `json:"decoded_watermark,omitempty"`
	CodecExitCode    *int          `json:"codec_exit_code,omitempty"`
	CodecStderr      string        `json:"codec_stderr,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
