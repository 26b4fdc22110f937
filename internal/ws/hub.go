package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/metrics"
	"github.com/ignatzorin/easytransact-backend/internal/models"
)

// Hub рассылает изменения строк подписчикам канала проекта.
// Каналы создаются при первой подписке и удаляются, когда уходит последний клиент.
type Hub struct {
	mu         sync.RWMutex
	topics     map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
}

type message struct {
	projectID uuid.UUID
	payload   []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		topics:     make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.projectID, msg.payload)
		}
	}
}

// Register подписывает клиента на канал его проекта.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister отписывает клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish отправляет событие всем подписчикам проекта event.ProjectID.
func (h *Hub) Publish(ctx context.Context, event models.ChangeEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать событие: %w", err)
	}

	select {
	case h.broadcast <- message{projectID: event.ProjectID, payload: raw}:
		return nil
	case <-h.done:
		return fmt.Errorf("ws: хаб остановлен")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribers возвращает количество подписчиков проекта.
func (h *Hub) Subscribers(projectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[projectID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.topics[client.projectID]; !ok {
		h.topics[client.projectID] = make(map[*Client]struct{})
	}
	h.topics[client.projectID][client] = struct{}{}
	metrics.WSClients.Inc()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

// dropLocked удаляет клиента и закрывает его очередь. Вызывается под h.mu.
func (h *Hub) dropLocked(client *Client) {
	clients, ok := h.topics[client.projectID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	metrics.WSClients.Dec()

	if len(clients) == 0 {
		delete(h.topics, client.projectID)
	}
}

func (h *Hub) send(projectID uuid.UUID, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.topics[projectID] {
		select {
		case client.send <- payload:
		default:
			// Медленный клиент: отключаем, он перезагрузит состояние при переподключении.
			logger.Get().WithFields(logrus.Fields{
				"project_id": projectID,
				"user_id":    client.userID,
			}).Warn("ws: очередь клиента переполнена, отключаем")
			h.dropLocked(client)
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.topics {
		for client := range clients {
			h.dropLocked(client)
		}
	}
}
