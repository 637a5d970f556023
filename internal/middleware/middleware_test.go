package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestMultipartValidator(t *testing.T) {
	h := MultipartValidator()(okHandler())

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		want        int
	}{
		{"json on upload", http.MethodPost, "/images/upload", "application/json", http.StatusUnsupportedMediaType},
		{"multipart on upload", http.MethodPost, "/images/upload", "multipart/form-data; boundary=x", http.StatusTeapot},
		{"multipart on files", http.MethodPost, "/files/upload", "Multipart/Form-Data; boundary=x", http.StatusTeapot},
		{"other path", http.MethodPost, "/other", "text/plain", http.StatusTeapot},
		{"get upload", http.MethodGet, "/images/upload", "", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Внутренняя ошибка сервера")
}

func TestReqLogger_PassesStatus(t *testing.T) {
	h := ReqLogger(zaptest.NewLogger(t))(okHandler())
	w := httptest.NewRecorder()

	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/x.zip", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}
