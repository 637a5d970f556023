package services

import (
	"context"

	"github.com/sunr3d/picture-drm/models"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.2 --name=ArchiveBuilder --output=../../../mocks
type ArchiveBuilder interface {
	Build(ctx context.Context, files []models.UploadedFile) (*models.ArchiveJob, error)
}
