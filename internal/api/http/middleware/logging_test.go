package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
)

func TestLogging_Handle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		wantLevel string
		wantMsg   string
	}{
		{name: "success", status: http.StatusOK, wantLevel: "level=INFO", wantMsg: "HTTP request completed"},
		{name: "client error", status: http.StatusConflict, wantLevel: "level=WARN", wantMsg: "HTTP request rejected"},
		{name: "server error", status: http.StatusInternalServerError, wantLevel: "level=ERROR", wantMsg: "HTTP request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			lg := logger.NewWithWriter(&buf, 0)

			r := mux.NewRouter()
			r.Use(NewLogging(lg).Handle)
			r.HandleFunc("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

			assert.Equal(t, tt.status, rec.Code)
			out := buf.String()
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, tt.wantMsg)
			assert.Contains(t, out, "path=/users/{id}")
			assert.Contains(t, out, "method=GET")
		})
	}
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	t.Parallel()

	rec := newStatusRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("body"))
	rec.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusOK, rec.status)
}
