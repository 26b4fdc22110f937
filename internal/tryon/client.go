// Package tryon проксирует запросы виртуальной примерки в hosted Gradio приложение.
package tryon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ignatzorin/easytransact-backend/internal/config"
)

// Параметры предсказания, которые ожидает приложение примерки.
const (
	garmentDescription = "Hello!!"
	autoMask           = true
	autoCrop           = true
	denoiseSteps       = 20
	seed               = 20
)

const maxSSELine = 1 << 20

var errNoEventID = errors.New("gradio не вернул event_id")

// File - загруженный пользователем файл.
type File struct {
	Name string
	Data []byte
}

// Client вызывает Gradio API: загрузка файлов, запуск задачи и чтение результата из SSE.
type Client struct {
	baseURL  string
	endpoint string
	token    string
	http     *http.Client
}

func NewClient(cfg config.TryOnConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		endpoint: strings.TrimPrefix(cfg.Endpoint, "/"),
		token:    cfg.Token,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

type fileData struct {
	Path     string            `json:"path"`
	OrigName string            `json:"orig_name,omitempty"`
	Meta     map[string]string `json:"meta"`
}

func newFileData(path, name string) fileData {
	return fileData{Path: path, OrigName: name, Meta: map[string]string{"_type": "gradio.FileData"}}
}

// Predict загружает оба изображения, запускает примерку и возвращает поле data результата.
func (c *Client) Predict(ctx context.Context, background, garment File) (json.RawMessage, error) {
	paths, err := c.upload(ctx, background, garment)
	if err != nil {
		return nil, err
	}

	input := []any{
		map[string]any{
			"background": newFileData(paths[0], background.Name),
			"layers":     []any{},
			"composite":  nil,
		},
		newFileData(paths[1], garment.Name),
		garmentDescription,
		autoMask,
		autoCrop,
		denoiseSteps,
		seed,
	}

	eventID, err := c.call(ctx, input)
	if err != nil {
		return nil, err
	}
	return c.result(ctx, eventID)
}

// ExtractURLs достаёт ссылки на два выходных изображения.
func ExtractURLs(data json.RawMessage) (backgroundURL, garmentURL string, ok bool) {
	var items []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &items); err != nil || len(items) < 2 {
		return "", "", false
	}
	if items[0].URL == "" || items[1].URL == "" {
		return "", "", false
	}
	return items[0].URL, items[1].URL, true
}

func (c *Client) upload(ctx context.Context, files ...File) ([]string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("tryon: upload: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("tryon: upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("tryon: upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/gradio_api/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var paths []string
	if err := c.doJSON(req, &paths); err != nil {
		return nil, fmt.Errorf("tryon: upload: %w", err)
	}
	if len(paths) != len(files) {
		return nil, fmt.Errorf("tryon: upload: ожидалось %d путей, получено %d", len(files), len(paths))
	}
	return paths, nil
}

func (c *Client) call(ctx context.Context, input []any) (string, error) {
	body, err := json.Marshal(map[string]any{"data": input})
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/gradio_api/call/"+c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		EventID string `json:"event_id"`
	}
	if err := c.doJSON(req, &resp); err != nil {
		return "", fmt.Errorf("tryon: call: %w", err)
	}
	if resp.EventID == "" {
		return "", fmt.Errorf("tryon: call: %w", errNoEventID)
	}
	return resp.EventID, nil
}

// result читает поток событий задачи до complete или error.
func (c *Client) result(ctx context.Context, eventID string) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/gradio_api/call/"+c.endpoint+"/"+eventID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tryon: result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("tryon: result: код ответа %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxSSELine)

	var event string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "complete":
				return json.RawMessage(data), nil
			case "error":
				if data == "" || data == "null" {
					data = "inference failed"
				}
				return nil, fmt.Errorf("tryon: %s", strings.Trim(data, `"`))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tryon: result: %w", err)
	}
	return nil, errors.New("tryon: поток завершился без результата")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("код ответа %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
