package entrypoint

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/sunr3d/picture-drm/internal/api"
	"github.com/sunr3d/picture-drm/internal/config"
	"github.com/sunr3d/picture-drm/internal/infra/inmem"
	"github.com/sunr3d/picture-drm/internal/infra/subprocess"
	"github.com/sunr3d/picture-drm/internal/middleware"
	"github.com/sunr3d/picture-drm/internal/server"
	"github.com/sunr3d/picture-drm/internal/services/archive_service"
	"github.com/sunr3d/picture-drm/internal/services/pipeline_service"
	"github.com/sunr3d/picture-drm/internal/services/watermark_service"
)

func Run(cfg *config.Config, log *zap.Logger) error {
	if err := os.MkdirAll(cfg.UploadsDir, 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию для загрузок: %w", err)
	}
	log.Info("директория для загрузок готова", zap.String("path", cfg.UploadsDir))

	// отсутствующий кодек не мешает старту: прогоны упадут на стадии встраивания
	for _, st := range watermark_service.Preflight(cfg) {
		if !st.Available {
			log.Warn("кодек водяного знака недоступен",
				zap.String("name", st.Name),
				zap.String("command", st.Command),
				zap.String("detail", st.Detail),
			)
		}
	}

	db := inmem.New(log, cfg.RunTTL)
	runner := subprocess.New(log)
	builder := archive_service.New(log, cfg)
	codec := watermark_service.New(log, cfg, runner)
	pipeline := pipeline_service.New(log, cfg, builder, codec, db)
	controller := api.New(pipeline, log, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /images/upload", controller.UploadImages)
	mux.HandleFunc("POST /files/upload", controller.UploadFiles)
	mux.HandleFunc("GET /images/runs/{id}", controller.GetRun)
	mux.Handle("GET "+cfg.PublicPrefix, controller.Uploads())

	router := http.Handler(mux)
	router = middleware.MultipartValidator()(router)
	router = middleware.ReqLogger(log)(router)
	router = middleware.Recovery(log)(router)

	srv := server.New(cfg.HTTPHost, cfg.HTTPPort, cfg.HTTPTimeout, router, log)
	return srv.Start()
}
