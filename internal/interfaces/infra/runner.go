package infra

import "context"

//go:generate go run github.com/vektra/mockery/v2@v2.53.2 --name=CommandRunner --output=../../../mocks
type CommandRunner interface {
	Run(ctx context.Context, executable string, args []string) (string, error)
}
