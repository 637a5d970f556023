package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sunr3d/picture-drm/internal/interfaces/infra"
	"github.com/sunr3d/picture-drm/models"
)

var _ infra.RunStore = (*inmemDB)(nil)

type inmemDB struct {
	logger *zap.Logger
	db     map[string]*models.PipelineRun
	mu     sync.RWMutex
	ttl    time.Duration
}

func New(log *zap.Logger, ttl time.Duration) infra.RunStore {
	return &inmemDB{
		logger: log,
		db:     make(map[string]*models.PipelineRun),
		ttl:    ttl,
	}
}

func (db *inmemDB) SaveRun(ctx context.Context, run *models.PipelineRun) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	if run == nil {
		return ErrRunNil
	}

	if run.ID == "" {
		return ErrRunIDEmpty
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.db[run.ID] = cloneRun(run)
	db.logger.Debug("прогон сохранен",
		zap.String("run_id", run.ID),
		zap.String("stage", string(run.Stage)),
	)

	return nil
}

func (db *inmemDB) GetRun(ctx context.Context, id string) (*models.PipelineRun, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	if id == "" {
		return nil, ErrRunIDEmpty
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	run, exists := db.db[id]
	if !exists {
		return nil, ErrRunNotFound
	}

	return cloneRun(run), nil
}

// CountRunsInProcess считает незавершенные прогоны и попутно
// вычищает все записи старше TTL.
func (db *inmemDB) CountRunsInProcess(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	return db.countInProcessLocked(), nil
}

// ReserveRun проверяет лимит и сохраняет прогон под одной блокировкой.
func (db *inmemDB) ReserveRun(ctx context.Context, run *models.PipelineRun, limit int) (bool, error) {
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	if run == nil {
		return false, ErrRunNil
	}

	if run.ID == "" {
		return false, ErrRunIDEmpty
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if count := db.countInProcessLocked(); count >= limit {
		db.logger.Warn("достигнут лимит прогонов в процессе",
			zap.Int("in_process", count),
			zap.Int("limit", limit),
		)
		return false, nil
	}

	db.db[run.ID] = cloneRun(run)
	db.logger.Debug("прогон зарегистрирован", zap.String("run_id", run.ID))

	return true, nil
}

func (db *inmemDB) countInProcessLocked() int {
	count := 0
	now := time.Now()

	for id, run := range db.db {
		if db.ttl > 0 && now.Sub(run.UpdatedAt) > db.ttl {
			delete(db.db, id)
			db.logger.Info("прогон удален по TTL", zap.String("run_id", id))
			continue
		}
		if !run.Stage.Terminal() {
			count++
		}
	}

	return count
}

func (db *inmemDB) DeleteRun(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}

	if id == "" {
		return ErrRunIDEmpty
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.db[id]; !exists {
		return ErrRunNotFound
	}

	delete(db.db, id)
	db.logger.Info("прогон удален", zap.String("run_id", id))

	return nil
}

func cloneRun(run *models.PipelineRun) *models.PipelineRun {
	cp := *run
	cp.Files = append([]string(nil), run.Files...)
	if run.CodecExitCode != nil {
		code := *run.CodecExitCode
		cp.CodecExitCode = &code
	}
	return &cp
}
