// Package realtime превращает уведомления PostgreSQL LISTEN/NOTIFY в события каналов проектов.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/metrics"
	"github.com/ignatzorin/easytransact-backend/internal/models"
)

// Channel - канал NOTIFY, в который пишут триггеры таблиц messages и offers.
const Channel = "escrow_changes"

const (
	minReconnectInterval = time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

type MessageReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
}

type OfferReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

// Publisher доставляет событие подписчикам проекта.
type Publisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

// notification - содержимое payload, которое формирует триггер notify_escrow_change.
type notification struct {
	Table     string    `json:"table"`
	Op        string    `json:"op"`
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
}

type Listener struct {
	dsn       string
	messages  MessageReader
	offers    OfferReader
	publisher Publisher
}

func NewListener(dsn string, messages MessageReader, offers OfferReader, publisher Publisher) *Listener {
	return &Listener{
		dsn:       dsn,
		messages:  messages,
		offers:    offers,
		publisher: publisher,
	}
}

// Run слушает канал до отмены ctx. Переподключения выполняет pq.Listener;
// уведомления, пришедшие во время разрыва, теряются.
func (l *Listener) Run(ctx context.Context) error {
	log := logger.Get()

	pl := pq.NewListener(l.dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithFields(logrus.Fields{"event": ev, "error": err.Error()}).Warn("realtime: событие соединения")
		}
	})
	defer pl.Close()

	if err := pl.Listen(Channel); err != nil {
		return fmt.Errorf("realtime: не удалось подписаться на %s: %w", Channel, err)
	}
	log.WithField("channel", Channel).Info("realtime: слушаем изменения")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-pl.Notify:
			if n == nil {
				// nil приходит после переподключения
				log.Warn("realtime: соединение восстановлено, часть событий могла быть потеряна")
				continue
			}
			if err := l.handleNotification(ctx, n.Extra); err != nil {
				log.WithFields(logrus.Fields{"payload": n.Extra, "error": err.Error()}).Error("realtime: не удалось обработать уведомление")
			}
		case <-ticker.C:
			if err := pl.Ping(); err != nil {
				log.WithField("error", err.Error()).Warn("realtime: ping не прошёл")
			}
		}
	}
}

func (l *Listener) handleNotification(ctx context.Context, payload string) error {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		metrics.RealtimeEventsTotal.WithLabelValues("unknown", "error").Inc()
		return fmt.Errorf("realtime: некорректный payload: %w", err)
	}

	row, err := l.loadRow(ctx, n)
	if err != nil {
		metrics.RealtimeEventsTotal.WithLabelValues(n.Table, "error").Inc()
		return err
	}
	if row == nil {
		metrics.RealtimeEventsTotal.WithLabelValues(n.Table, "dropped").Inc()
		return nil
	}

	event := models.ChangeEvent{
		Table:     n.Table,
		Type:      n.Op,
		ProjectID: n.ProjectID,
		New:       row,
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		metrics.RealtimeEventsTotal.WithLabelValues(n.Table, "error").Inc()
		return fmt.Errorf("realtime: publish: %w", err)
	}

	metrics.RealtimeEventsTotal.WithLabelValues(n.Table, "published").Inc()
	return nil
}

// loadRow читает актуальное состояние строки. Для неизвестных таблиц возвращает nil.
func (l *Listener) loadRow(ctx context.Context, n notification) (json.RawMessage, error) {
	var row any
	switch n.Table {
	case models.TableMessages:
		m, err := l.messages.GetByID(ctx, n.ID)
		if err != nil {
			return nil, fmt.Errorf("realtime: load message %s: %w", n.ID, err)
		}
		row = m
	case models.TableOffers:
		o, err := l.offers.GetByID(ctx, n.ID)
		if err != nil {
			return nil, fmt.Errorf("realtime: load offer %s: %w", n.ID, err)
		}
		row = o
	default:
		return nil, nil
	}

	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("realtime: marshal %s: %w", n.Table, err)
	}
	return raw, nil
}
