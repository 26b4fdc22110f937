// Package feed собирает состояние проекта на стороне клиента из снимка и потока событий.
package feed

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/easytransact-backend/internal/models"
)

// View хранит сообщения и предложение проекта в порядке поступления событий.
// Пропуски не обнаруживаются: после переподключения нужен новый снимок.
type View struct {
	mu       sync.RWMutex
	project  models.Project
	offer    *models.Offer
	messages []models.Message
	seen     map[uuid.UUID]struct{}
}

func NewView() *View {
	return &View{seen: make(map[uuid.UUID]struct{})}
}

// Reset заменяет состояние снимком проекта.
func (v *View) Reset(snapshot models.ProjectDetails) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.project = snapshot.Project
	v.offer = snapshot.Offer
	v.messages = make([]models.Message, 0, len(snapshot.Messages))
	v.seen = make(map[uuid.UUID]struct{}, len(snapshot.Messages))
	for _, m := range snapshot.Messages {
		v.appendLocked(m)
	}
}

// Apply применяет событие изменения строки. Сообщения добавляются в конец,
// предложение заменяется целиком, если событие не старше текущего состояния.
func (v *View) Apply(event models.ChangeEvent) error {
	switch event.Table {
	case models.TableMessages:
		var m models.Message
		if err := json.Unmarshal(event.New, &m); err != nil {
			return fmt.Errorf("feed: некорректное сообщение: %w", err)
		}
		v.mu.Lock()
		v.appendLocked(m)
		v.mu.Unlock()
	case models.TableOffers:
		var o models.Offer
		if err := json.Unmarshal(event.New, &o); err != nil {
			return fmt.Errorf("feed: некорректное предложение: %w", err)
		}
		v.mu.Lock()
		if !v.staleLocked(o) {
			v.offer = &o
		}
		v.mu.Unlock()
	default:
		return fmt.Errorf("feed: неизвестная таблица %q", event.Table)
	}
	return nil
}

// staleLocked сообщает, что событие описывает более раннее состояние того же
// предложения: оно обновлено раньше или стоит раньше по жизненному циклу.
func (v *View) staleLocked(o models.Offer) bool {
	cur := v.offer
	if cur == nil || cur.ID != o.ID {
		return false
	}
	return o.UpdatedAt.Before(cur.UpdatedAt) || o.Status.Rank() < cur.Status.Rank()
}

// appendLocked пропускает сообщение, уже пришедшее в снимке или раньше по каналу.
func (v *View) appendLocked(m models.Message) {
	if _, ok := v.seen[m.ID]; ok {
		return
	}
	v.seen[m.ID] = struct{}{}
	v.messages = append(v.messages, m)
}

func (v *View) Project() models.Project {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.project
}

func (v *View) Offer() *models.Offer {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.offer == nil {
		return nil
	}
	o := *v.offer
	return &o
}

func (v *View) Messages() []models.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.Message, len(v.messages))
	copy(out, v.messages)
	return out
}
