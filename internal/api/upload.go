package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sunr3d/picture-drm/internal/config"
	"github.com/sunr3d/picture-drm/internal/interfaces/services"
	"github.com/sunr3d/picture-drm/internal/naming"
	"github.com/sunr3d/picture-drm/internal/services/pipeline_service"
)

const (
	formField       = "files"
	multipartMemory = 32 << 20
	formOverhead    = 1 << 20
)

type UploadAPI struct {
	pipeline services.Pipeline
	logger   *zap.Logger
	cfg      *config.Config
}

func New(pipeline services.Pipeline, logger *zap.Logger, cfg *config.Config) *UploadAPI {
	return &UploadAPI{
		pipeline: pipeline,
		logger:   logger,
		cfg:      cfg,
	}
}

// POST /images/upload
func (h *UploadAPI) UploadImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxImageFiles)*h.cfg.MaxImageSize+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.Error("ошибка парсинга multipart формы", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "Некорректная multipart форма: "+err.Error(), "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[formField]
	if len(headers) == 0 {
		h.writeError(w, http.StatusBadRequest, "Не передано ни одного файла", "")
		return
	}
	if len(headers) > h.cfg.MaxImageFiles {
		h.writeError(w, http.StatusBadRequest, "Превышено количество файлов в запросе", "")
		return
	}

	batchDir := filepath.Join(h.cfg.UploadsDir, naming.BatchDirName())
	files, err := saveParts(batchDir, headers, true, h.cfg.MaxImageSize)
	if err != nil {
		h.logger.Error("ошибка сохранения изображений", zap.String("batch_dir", batchDir), zap.Error(err))
		if rmErr := os.RemoveAll(batchDir); rmErr != nil {
			h.logger.Error("не удалось удалить каталог пачки", zap.String("batch_dir", batchDir), zap.Error(rmErr))
		}
		status := http.StatusInternalServerError
		if errors.Is(err, errNotImage) || errors.Is(err, errFileTooLarge) {
			status = http.StatusBadRequest
		}
		h.writeError(w, status, err.Error(), "")
		return
	}

	// обрыв соединения клиента не прерывает начатый прогон
	ctx := context.WithoutCancel(r.Context())
	result, err := h.pipeline.Process(ctx, files)
	if err != nil {
		h.logger.Error("ошибка обработки изображений", zap.Error(err))
		h.writePipelineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// POST /files/upload
func (h *UploadAPI) UploadFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxFiles)*h.cfg.MaxFileSize+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.Error("ошибка парсинга multipart формы", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "Некорректная multipart форма: "+err.Error(), "")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[formField]
	if len(headers) == 0 {
		h.writeError(w, http.StatusBadRequest, "Не передано ни одного файла", "")
		return
	}
	if len(headers) > h.cfg.MaxFiles {
		h.writeError(w, http.StatusBadRequest, "Превышено количество файлов в запросе", "")
		return
	}

	files, err := saveParts(h.cfg.UploadsDir, headers, false, h.cfg.MaxFileSize)
	if err != nil {
		h.logger.Error("ошибка сохранения файлов", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, errFileTooLarge) {
			status = http.StatusBadRequest
		}
		h.writeError(w, status, err.Error(), "")
		return
	}

	resp := make([]uploadedFileResp, 0, len(files))
	for _, f := range files {
		name := filepath.Base(f.StoragePath)
		resp = append(resp, uploadedFileResp{
			OriginalName: f.OriginalName,
			Filename:     name,
			MimeType:     f.MimeType,
			Size:         f.SizeBytes,
			URL:          h.publicURL(name),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GET /images/runs/{id}
func (h *UploadAPI) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		h.writeError(w, http.StatusBadRequest, "Некорректный запрос: отсутствует id прогона", "")
		return
	}

	run, err := h.pipeline.GetRun(r.Context(), runID)
	if err != nil {
		h.logger.Error("ошибка при попытке получения прогона", zap.Error(err))
		h.writeError(w, http.StatusNotFound, "Прогон не найден", "")
		return
	}

	h.writeJSON(w, http.StatusOK, run)
}

// GET /uploads/...
func (h *UploadAPI) Uploads() http.Handler {
	prefix := "/" + strings.Trim(h.cfg.PublicPrefix, "/") + "/"
	return http.StripPrefix(prefix, http.FileServer(http.Dir(h.cfg.UploadsDir)))
}

func (h *UploadAPI) publicURL(name string) string {
	return strings.TrimSuffix(h.cfg.PublicPrefix, "/") + "/" + name
}

func (h *UploadAPI) writePipelineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline_service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, pipeline_service.ErrServerBusy):
		status = http.StatusServiceUnavailable
	}

	var stage string
	var stageErr *pipeline_service.StageError
	if errors.As(err, &stageErr) {
		stage = string(stageErr.Stage)
	}

	h.writeError(w, status, err.Error(), stage)
}

func (h *UploadAPI) writeError(w http.ResponseWriter, status int, msg, stage string) {
	h.writeJSON(w, status, errorResp{Error: msg, Stage: stage})
}

func (h *UploadAPI) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("ошибка кодирования JSON ответа", zap.Error(err))
	}
}
