package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
	"github.com/ignatzorin/easytransact-backend/internal/models"
)

func messageEvent(t *testing.T, m models.Message) models.ChangeEvent {
	t.Helper()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	return models.ChangeEvent{Table: models.TableMessages, Type: models.ChangeInsert, ProjectID: m.ProjectID, New: raw}
}

func TestView_AppendsInArrivalOrderAndSkipsDuplicates(t *testing.T) {
	projectID := uuid.New()
	first := models.Message{ID: uuid.New(), ProjectID: projectID, Content: "from snapshot"}

	v := NewView()
	v.Reset(models.ProjectDetails{Project: models.Project{ID: projectID}, Messages: []models.Message{first}})

	second := models.Message{ID: uuid.New(), ProjectID: projectID, Content: "live"}
	require.NoError(t, v.Apply(messageEvent(t, first)))
	require.NoError(t, v.Apply(messageEvent(t, second)))

	msgs := v.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "from snapshot", msgs[0].Content)
	assert.Equal(t, "live", msgs[1].Content)
}

func TestView_ReplacesOffer(t *testing.T) {
	v := NewView()
	assert.Nil(t, v.Offer())

	offer := models.Offer{ID: uuid.New(), Status: valueobject.OfferStatusPending}
	raw, _ := json.Marshal(offer)
	require.NoError(t, v.Apply(models.ChangeEvent{Table: models.TableOffers, Type: models.ChangeInsert, New: raw}))
	assert.Equal(t, valueobject.OfferStatusPending, v.Offer().Status)

	offer.Status = valueobject.OfferStatusPaid
	raw, _ = json.Marshal(offer)
	require.NoError(t, v.Apply(models.ChangeEvent{Table: models.TableOffers, Type: models.ChangeUpdate, New: raw}))
	assert.Equal(t, valueobject.OfferStatusPaid, v.Offer().Status)
}

func offerEvent(t *testing.T, o models.Offer) models.ChangeEvent {
	t.Helper()
	raw, err := json.Marshal(o)
	require.NoError(t, err)
	return models.ChangeEvent{Table: models.TableOffers, Type: models.ChangeUpdate, ProjectID: o.ProjectID, New: raw}
}

func TestView_IgnoresOfferEventOlderThanSnapshot(t *testing.T) {
	projectID := uuid.New()
	updated := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	current := models.Offer{ID: uuid.New(), ProjectID: projectID, Status: valueobject.OfferStatusWorkSubmitted, UpdatedAt: updated}

	v := NewView()
	v.Reset(models.ProjectDetails{Project: models.Project{ID: projectID}, Offer: &current})

	older := current
	older.Status = valueobject.OfferStatusPaid
	older.UpdatedAt = updated.Add(-time.Minute)
	require.NoError(t, v.Apply(offerEvent(t, older)))
	assert.Equal(t, valueobject.OfferStatusWorkSubmitted, v.Offer().Status)

	// Та же метка времени, но статус раньше по жизненному циклу.
	sameTime := current
	sameTime.Status = valueobject.OfferStatusPaid
	require.NoError(t, v.Apply(offerEvent(t, sameTime)))
	assert.Equal(t, valueobject.OfferStatusWorkSubmitted, v.Offer().Status)

	newer := current
	newer.Status = valueobject.OfferStatusCompleted
	newer.UpdatedAt = updated.Add(time.Minute)
	require.NoError(t, v.Apply(offerEvent(t, newer)))
	assert.Equal(t, valueobject.OfferStatusCompleted, v.Offer().Status)

	other := models.Offer{ID: uuid.New(), ProjectID: projectID, Status: valueobject.OfferStatusPending, UpdatedAt: updated.Add(-time.Hour)}
	require.NoError(t, v.Apply(offerEvent(t, other)))
	assert.Equal(t, other.ID, v.Offer().ID)
}

func TestView_RejectsUnknownTable(t *testing.T) {
	err := NewView().Apply(models.ChangeEvent{Table: "projects", New: json.RawMessage(`{}`)})
	assert.Error(t, err)
}
