package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/metrics"
	"github.com/ignatzorin/easytransact-backend/internal/tryon"
)

// Тексты ответов, на которые рассчитывает клиент примерки.
const (
	errTryOnMissingFiles = "Both background and garment files are required."
	errTryOnBadFormat    = "Received an unexpected result format from the server."
	errTryOnFailedPrefix = "An error occurred while processing your request: "
)

// TryOnPredictor выполняет примерку на внешнем сервисе.
type TryOnPredictor interface {
	Predict(ctx context.Context, background, garment tryon.File) (json.RawMessage, error)
}

// TryOnHandler принимает два изображения и возвращает ссылки на результат.
type TryOnHandler struct {
	predictor TryOnPredictor
	maxBytes  int64
}

func NewTryOnHandler(predictor TryOnPredictor, maxUploadMB int64) *TryOnHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &TryOnHandler{predictor: predictor, maxBytes: maxUploadMB << 20}
}

// TryOn POST /tryon
func (h *TryOnHandler) TryOn(c *gin.Context) {
	bgHeader, bgErr := c.FormFile("background")
	garmentHeader, garmentErr := c.FormFile("garment")
	if bgErr != nil || garmentErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errTryOnMissingFiles})
		return
	}

	background, err := h.readImage(bgHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	garment, err := h.readImage(garmentHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := h.predictor.Predict(c.Request.Context(), background, garment)
	if err != nil {
		metrics.TryOnRequestsTotal.WithLabelValues("error").Inc()
		logger.Get().WithField("error", err.Error()).Error("ошибка примерки")
		c.JSON(http.StatusInternalServerError, gin.H{"error": errTryOnFailedPrefix + err.Error()})
		return
	}

	backgroundURL, garmentURL, ok := tryon.ExtractURLs(data)
	if !ok {
		metrics.TryOnRequestsTotal.WithLabelValues("bad_format").Inc()
		logger.Get().WithFields(logrus.Fields{"data": string(data)}).Warn("неожиданный формат ответа примерки")
		c.JSON(http.StatusInternalServerError, gin.H{"error": errTryOnBadFormat, "data": data})
		return
	}

	metrics.TryOnRequestsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"backgroundUrl": backgroundURL, "garmentUrl": garmentURL})
}

// readImage читает файл целиком и проверяет по сигнатуре, что это изображение.
func (h *TryOnHandler) readImage(fh *multipart.FileHeader) (tryon.File, error) {
	if fh.Size == 0 {
		return tryon.File{}, fmt.Errorf("файл %s пустой", fh.Filename)
	}
	if fh.Size > h.maxBytes {
		return tryon.File{}, fmt.Errorf("файл %s больше %d МБ", fh.Filename, h.maxBytes>>20)
	}

	f, err := fh.Open()
	if err != nil {
		return tryon.File{}, fmt.Errorf("не удалось открыть файл %s", fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes))
	if err != nil {
		return tryon.File{}, fmt.Errorf("не удалось прочитать файл %s", fh.Filename)
	}
	if !filetype.IsImage(data) {
		return tryon.File{}, fmt.Errorf("файл %s не является изображением", fh.Filename)
	}
	return tryon.File{Name: fh.Filename, Data: data}, nil
}
