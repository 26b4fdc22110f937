package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferStatus_TransitionsOnlyMoveForward(t *testing.T) {
	all := []OfferStatus{
		OfferStatusPending, OfferStatusPaid, OfferStatusWorkSubmitted,
		OfferStatusCompleted, OfferStatusRevisionRequested,
	}

	for _, from := range all {
		for _, to := range all {
			if from.CanTransitionTo(to) {
				assert.Equal(t, from.Rank()+1, to.Rank(), "%s -> %s", from, to)
			}
		}
	}
}

func TestOfferStatus_Sequence(t *testing.T) {
	assert.True(t, OfferStatusPending.CanTransitionTo(OfferStatusPaid))
	assert.True(t, OfferStatusPaid.CanTransitionTo(OfferStatusWorkSubmitted))
	assert.True(t, OfferStatusWorkSubmitted.CanTransitionTo(OfferStatusCompleted))
	assert.True(t, OfferStatusWorkSubmitted.CanTransitionTo(OfferStatusRevisionRequested))

	assert.False(t, OfferStatusPending.CanTransitionTo(OfferStatusCompleted))
	assert.False(t, OfferStatusCompleted.CanTransitionTo(OfferStatusRevisionRequested))
	assert.False(t, OfferStatusRevisionRequested.CanTransitionTo(OfferStatusPaid))
}

func TestPreviousFor(t *testing.T) {
	prev, ok := PreviousFor(OfferStatusCompleted)
	require.True(t, ok)
	assert.Equal(t, OfferStatusWorkSubmitted, prev)

	prev, ok = PreviousFor(OfferStatusPaid)
	require.True(t, ok)
	assert.Equal(t, OfferStatusPending, prev)

	_, ok = PreviousFor(OfferStatusPending)
	assert.False(t, ok)
}

func TestOfferStatus_MessageType(t *testing.T) {
	assert.Equal(t, MessageTypeOfferCreated, OfferStatusPending.MessageType())
	assert.Equal(t, MessageTypeOfferPaid, OfferStatusPaid.MessageType())
	assert.Equal(t, MessageTypeWorkSubmitted, OfferStatusWorkSubmitted.MessageType())
	assert.Equal(t, MessageTypeWorkApproved, OfferStatusCompleted.MessageType())
	assert.Equal(t, MessageTypeRevisionRequested, OfferStatusRevisionRequested.MessageType())
}

func TestNewInvitationDecision(t *testing.T) {
	s, err := NewInvitationDecision("accepted")
	require.NoError(t, err)
	assert.Equal(t, InvitationStatusAccepted, s)

	_, err = NewInvitationDecision("pending")
	assert.Error(t, err)
}

func TestNewCreatorRole(t *testing.T) {
	_, err := NewCreatorRole("buyer")
	assert.NoError(t, err)
	_, err = NewCreatorRole("admin")
	assert.Error(t, err)
}
