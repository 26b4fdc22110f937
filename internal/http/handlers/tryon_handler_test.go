package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/easytransact-backend/internal/tryon"
)

type mockPredictor struct{ mock.Mock }

func (m *mockPredictor) Predict(ctx context.Context, background, garment tryon.File) (json.RawMessage, error) {
	args := m.Called(ctx, background, garment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, data := range files {
		w, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func serveTryOn(t *testing.T, predictor TryOnPredictor, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/tryon", NewTryOnHandler(predictor, 1).TryOn)

	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/tryon", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTryOnHandler_MissingFile(t *testing.T) {
	p := new(mockPredictor)
	w := serveTryOn(t, p, map[string][]byte{"background": pngBytes(t)})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Both background and garment files are required.", decodeBody(t, w)["error"])
	p.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything, mock.Anything)
}

func TestTryOnHandler_NotAnImage(t *testing.T) {
	p := new(mockPredictor)
	w := serveTryOn(t, p, map[string][]byte{
		"background": pngBytes(t),
		"garment":    []byte("plain text, not a picture"),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	p.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything, mock.Anything)
}

func TestTryOnHandler_Success(t *testing.T) {
	p := new(mockPredictor)
	p.On("Predict", mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(`[{"url":"https://space/bg.png"},{"url":"https://space/garment.png"}]`), nil)

	w := serveTryOn(t, p, map[string][]byte{"background": pngBytes(t), "garment": pngBytes(t)})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "https://space/bg.png", body["backgroundUrl"])
	assert.Equal(t, "https://space/garment.png", body["garmentUrl"])
}

func TestTryOnHandler_UnexpectedFormat(t *testing.T) {
	p := new(mockPredictor)
	p.On("Predict", mock.Anything, mock.Anything, mock.Anything).Return(json.RawMessage(`{"foo":1}`), nil)

	w := serveTryOn(t, p, map[string][]byte{"background": pngBytes(t), "garment": pngBytes(t)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Received an unexpected result format from the server.", body["error"])
	assert.Equal(t, map[string]any{"foo": float64(1)}, body["data"])
}

func TestTryOnHandler_InferenceError(t *testing.T) {
	p := new(mockPredictor)
	p.On("Predict", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("queue full"))

	w := serveTryOn(t, p, map[string][]byte{"background": pngBytes(t), "garment": pngBytes(t)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An error occurred while processing your request: queue full", decodeBody(t, w)["error"])
}
