package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sunr3d/picture-drm/internal/config"
	"github.com/sunr3d/picture-drm/internal/services/pipeline_service"
	"github.com/sunr3d/picture-drm/models"
)

type pipelineMock struct {
	mock.Mock
}

func (m *pipelineMock) Process(ctx context.Context, files []models.UploadedFile) (*models.PipelineResult, error) {
	ret := m.Called(ctx, files)
	res, _ := ret.Get(0).(*models.PipelineResult)
	return res, ret.Error(1)
}

func (m *pipelineMock) GetRun(ctx context.Context, runID string) (*models.PipelineRun, error) {
	ret := m.Called(ctx, runID)
	run, _ := ret.Get(0).(*models.PipelineRun)
	return run, ret.Error(1)
}

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func setupTestAPI(t *testing.T) (*UploadAPI, *pipelineMock, *config.Config) {
	cfg := &config.Config{
		UploadsDir:    filepath.Join(t.TempDir(), "uploads"),
		PublicPrefix:  "/uploads/",
		MaxImageFiles: 3,
		MaxImageSize:  1 << 20,
		MaxFiles:      3,
		MaxFileSize:   1 << 20,
	}
	pipeline := &pipelineMock{}
	return New(pipeline, zaptest.NewLogger(t), cfg), pipeline, cfg
}

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, target string, files ...formFile) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAPI_UploadImages_Success(t *testing.T) {
	api, pipeline, cfg := setupTestAPI(t)
	img := pngBytes(t)

	want := &models.PipelineResult{
		ArchiveName:       "1700000000000-abc.zip",
		ArchiveURL:        "/uploads/1700000000000-abc.zip",
		ArchiveSizeBytes:  321,
		OriginalFileNames: []string{"a.png", "b.png"},
	}

	pipeline.On("Process", mock.Anything, mock.MatchedBy(func(files []models.UploadedFile) bool {
		if len(files) != 2 || files[0].OriginalName != "a.png" || files[1].OriginalName != "b.png" {
			return false
		}
		dir := filepath.Dir(files[0].StoragePath)
		if filepath.Dir(files[1].StoragePath) != dir || filepath.Dir(dir) != cfg.UploadsDir {
			return false
		}
		for _, f := range files {
			data, err := os.ReadFile(f.StoragePath)
			if err != nil || !bytes.Equal(data, img) || f.MimeType != "image/png" {
				return false
			}
		}
		return true
	})).Return(want, nil).Once()

	req := multipartRequest(t, "/images/upload",
		formFile{name: "a.png", contentType: "image/png", data: img},
		formFile{name: "b.png", contentType: "image/png", data: img},
	)
	w := httptest.NewRecorder()

	api.UploadImages(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got models.PipelineResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, *want, got)
	pipeline.AssertExpectations(t)
}

func TestUploadAPI_UploadImages_RunSurvivesClientCancel(t *testing.T) {
	api, pipeline, _ := setupTestAPI(t)

	pipeline.On("Process", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(&models.PipelineResult{}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := multipartRequest(t, "/images/upload",
		formFile{name: "a.png", contentType: "image/png", data: pngBytes(t)},
	).WithContext(ctx)
	w := httptest.NewRecorder()

	api.UploadImages(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	pipeline.AssertExpectations(t)
}

func TestUploadAPI_UploadImages_RejectsNonImage(t *testing.T) {
	api, pipeline, cfg := setupTestAPI(t)

	req := multipartRequest(t, "/images/upload",
		formFile{name: "a.png", contentType: "image/png", data: pngBytes(t)},
		formFile{name: "notes.txt", contentType: "text/plain", data: []byte("hello")},
	)
	w := httptest.NewRecorder()

	api.UploadImages(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "notes.txt")

	entries, err := os.ReadDir(cfg.UploadsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	pipeline.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestUploadAPI_UploadImages_RejectsSpoofedContentType(t *testing.T) {
	api, pipeline, _ := setupTestAPI(t)

	req := multipartRequest(t, "/images/upload",
		formFile{name: "evil.png", contentType: "image/png", data: []byte("#!/bin/sh\necho hi\n")},
	)
	w := httptest.NewRecorder()

	api.UploadImages(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	pipeline.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestUploadAPI_UploadImages_Limits(t *testing.T) {
	t.Run("too many files", func(t *testing.T) {
		api, pipeline, _ := setupTestAPI(t)
		img := pngBytes(t)

		files := make([]formFile, 4)
		for i := range files {
			files[i] = formFile{name: fmt.Sprintf("%d.png", i), contentType: "image/png", data: img}
		}
		w := httptest.NewRecorder()

		api.UploadImages(w, multipartRequest(t, "/images/upload", files...))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		pipeline.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("file too large", func(t *testing.T) {
		api, pipeline, cfg := setupTestAPI(t)
		cfg.MaxImageSize = 16
		w := httptest.NewRecorder()

		api.UploadImages(w, multipartRequest(t, "/images/upload",
			formFile{name: "a.png", contentType: "image/png", data: pngBytes(t)},
		))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		pipeline.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("no files", func(t *testing.T) {
		api, pipeline, _ := setupTestAPI(t)
		w := httptest.NewRecorder()

		api.UploadImages(w, multipartRequest(t, "/images/upload"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		pipeline.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})
}

func TestUploadAPI_UploadImages_PipelineErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantStage  string
	}{
		{
			name: "validation",
			err: &pipeline_service.StageError{
				Stage: models.StageReceived,
				Kind:  pipeline_service.ErrValidation,
				Err:   pipeline_service.ErrNoFiles,
			},
			wantStatus: http.StatusBadRequest,
			wantStage:  "received",
		},
		{
			name: "server busy",
			err: &pipeline_service.StageError{
				Stage: models.StageReceived,
				Kind:  pipeline_service.ErrServerBusy,
				Err:   errors.New("в процессе уже 16 прогонов"),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantStage:  "received",
		},
		{
			name: "subprocess",
			err: &pipeline_service.StageError{
				Stage: models.StageEncoding,
				Kind:  pipeline_service.ErrSubprocess,
				Err:   errors.New("exit status 1"),
			},
			wantStatus: http.StatusInternalServerError,
			wantStage:  "encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, pipeline, _ := setupTestAPI(t)
			pipeline.On("Process", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := httptest.NewRecorder()
			api.UploadImages(w, multipartRequest(t, "/images/upload",
				formFile{name: "a.png", contentType: "image/png", data: pngBytes(t)},
			))

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp errorResp
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStage, resp.Stage)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestUploadAPI_UploadFiles(t *testing.T) {
	api, pipeline, cfg := setupTestAPI(t)

	req := multipartRequest(t, "/files/upload",
		formFile{name: "notes.txt", contentType: "application/octet-stream", data: []byte("plain text content\n")},
		formFile{name: "pic.png", contentType: "image/png", data: pngBytes(t)},
	)
	w := httptest.NewRecorder()

	api.UploadFiles(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp []uploadedFileResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	assert.Equal(t, "notes.txt", resp[0].OriginalName)
	assert.Equal(t, "text/plain; charset=utf-8", resp[0].MimeType)
	assert.Equal(t, int64(19), resp[0].Size)
	assert.Equal(t, ".txt", filepath.Ext(resp[0].Filename))
	assert.Equal(t, "/uploads/"+resp[0].Filename, resp[0].URL)

	assert.Equal(t, "pic.png", resp[1].OriginalName)
	assert.Equal(t, "image/png", resp[1].MimeType)

	for _, f := range resp {
		_, err := os.Stat(filepath.Join(cfg.UploadsDir, f.Filename))
		assert.NoError(t, err)
	}
	pipeline.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestUploadAPI_GetRun(t *testing.T) {
	api, pipeline, _ := setupTestAPI(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /images/runs/{id}", api.GetRun)

	run := &models.PipelineRun{
		ID:          "run-1",
		Stage:       models.StageVerified,
		Files:       []string{"a.png"},
		ArchiveName: "x.zip",
	}
	pipeline.On("GetRun", mock.Anything, "run-1").Return(run, nil).Once()
	pipeline.On("GetRun", mock.Anything, "missing").Return(nil, pipeline_service.ErrRunGet).Once()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/runs/run-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var got models.PipelineRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, models.StageVerified, got.Stage)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/runs/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	pipeline.AssertExpectations(t)
}

func TestUploadAPI_Uploads(t *testing.T) {
	api, _, cfg := setupTestAPI(t)
	require.NoError(t, os.MkdirAll(cfg.UploadsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.UploadsDir, "archive.zip"), []byte("PK"), 0644))

	w := httptest.NewRecorder()
	api.Uploads().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/archive.zip", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PK", w.Body.String())

	w = httptest.NewRecorder()
	api.Uploads().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/missing.zip", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
