package services

import "context"

//go:generate go run github.com/vektra/mockery/v2@v2.53.2 --name=WatermarkCodec --output=../../../mocks
type WatermarkCodec interface {
	Encode(ctx context.Context, inputDir, outputDir, secret string) (string, error)
	Decode(ctx context.Context, imageDir string, expectedLength int) (string, error)
}
