package services

import (
	"context"

	"github.com/sunr3d/picture-drm/models"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.2 --name=Pipeline --output=../../../mocks
type Pipeline interface {
	Process(ctx context.Context, files []models.UploadedFile) (*models.PipelineResult, error)
	GetRun(ctx context.Context, runID string) (*models.PipelineRun, error)
}
