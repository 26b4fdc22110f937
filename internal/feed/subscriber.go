package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/easytransact-backend/internal/models"
)

// Subscriber подключается к каналу проекта на сервере и поддерживает View в актуальном состоянии.
type Subscriber struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

func NewSubscriber(baseURL, token string) *Subscriber {
	return &Subscriber{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Dialer:     websocket.DefaultDialer,
	}
}

// Run подписывается на канал, загружает снимок и применяет события до отмены ctx
// или закрытия соединения. onChange вызывается после снимка и после каждого события.
func (s *Subscriber) Run(ctx context.Context, projectID uuid.UUID, view *View, onChange func(*View, *models.ChangeEvent)) error {
	wsURL, err := s.wsURL(projectID)
	if err != nil {
		return err
	}

	conn, _, err := s.Dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: не удалось подключиться к каналу: %w", err)
	}
	defer conn.Close()

	// Подписка раньше снимка: события между ними не теряются, дубликаты отбрасывает View.
	snapshot, err := s.Snapshot(ctx, projectID)
	if err != nil {
		return err
	}
	view.Reset(*snapshot)
	if onChange != nil {
		onChange(view, nil)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var event models.ChangeEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("feed: чтение события: %w", err)
		}
		if err := view.Apply(event); err != nil {
			return err
		}
		if onChange != nil {
			onChange(view, &event)
		}
	}
}

// Snapshot загружает проект с предложением и перепиской.
func (s *Subscriber) Snapshot(ctx context.Context, projectID uuid.UUID) (*models.ProjectDetails, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/api/projects/"+projectID.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("feed: запрос снимка: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: запрос снимка: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("feed: снимок вернул %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var details models.ProjectDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("feed: разбор снимка: %w", err)
	}
	return &details, nil
}

func (s *Subscriber) wsURL(projectID uuid.UUID) (string, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("feed: некорректный адрес сервера: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("feed: адрес сервера должен начинаться с http(s) или ws(s)")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/projects/" + projectID.String() + "/ws"
	u.RawQuery = url.Values{"token": {s.Token}}.Encode()
	return u.String(), nil
}
