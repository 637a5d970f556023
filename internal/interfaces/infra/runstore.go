package infra

import (
	"context"

	"github.com/sunr3d/picture-drm/models"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.2 --name=RunStore --output=../../../mocks
type RunStore interface {
	SaveRun(ctx context.Context, run *models.PipelineRun) error
	GetRun(ctx context.Context, id string) (*models.PipelineRun, error)
	CountRunsInProcess(ctx context.Context) (int, error)
	// ReserveRun сохраняет run, только если незавершенных прогонов меньше limit.
	ReserveRun(ctx context.Context, run *models.PipelineRun, limit int) (bool, error)
	DeleteRun(ctx context.Context, id string) error
}
