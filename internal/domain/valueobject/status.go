package valueobject

import "github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"

type OfferStatus string

const (
	OfferStatusPending           OfferStatus = "pending"
	OfferStatusPaid              OfferStatus = "paid"
	OfferStatusWorkSubmitted     OfferStatus = "work_submitted"
	OfferStatusCompleted         OfferStatus = "completed"
	OfferStatusRevisionRequested OfferStatus = "revision_requested"
)

// offerTransitions задаёт единственный допустимый порядок:
// pending → paid → work_submitted → {completed | revision_requested}.
var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferStatusPending:           {OfferStatusPaid},
	OfferStatusPaid:              {OfferStatusWorkSubmitted},
	OfferStatusWorkSubmitted:     {OfferStatusCompleted, OfferStatusRevisionRequested},
	OfferStatusCompleted:         {},
	OfferStatusRevisionRequested: {},
}

func (s OfferStatus) CanTransitionTo(newStatus OfferStatus) bool {
	for _, status := range offerTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// Rank возвращает позицию статуса в жизненном цикле. Финальные статусы делят последнюю позицию.
func (s OfferStatus) Rank() int {
	switch s {
	case OfferStatusPending:
		return 0
	case OfferStatusPaid:
		return 1
	case OfferStatusWorkSubmitted:
		return 2
	case OfferStatusCompleted, OfferStatusRevisionRequested:
		return 3
	}
	return -1
}

// PreviousFor возвращает статус, из которого допустим переход в target.
func PreviousFor(target OfferStatus) (OfferStatus, bool) {
	for from, targets := range offerTransitions {
		for _, to := range targets {
			if to == target {
				return from, true
			}
		}
	}
	return "", false
}

// MessageType возвращает тип системного сообщения, которое сопровождает переход в статус.
func (s OfferStatus) MessageType() MessageType {
	switch s {
	case OfferStatusPending:
		return MessageTypeOfferCreated
	case OfferStatusPaid:
		return MessageTypeOfferPaid
	case OfferStatusWorkSubmitted:
		return MessageTypeWorkSubmitted
	case OfferStatusCompleted:
		return MessageTypeWorkApproved
	case OfferStatusRevisionRequested:
		return MessageTypeRevisionRequested
	}
	return MessageTypeText
}

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRejected InvitationStatus = "rejected"
)

// NewInvitationDecision принимает только ответ приглашённого: accepted или rejected.
func NewInvitationDecision(status string) (InvitationStatus, error) {
	s := InvitationStatus(status)
	if s != InvitationStatusAccepted && s != InvitationStatusRejected {
		return "", apperror.New(apperror.ErrCodeValidation, "статус приглашения должен быть accepted или rejected")
	}
	return s, nil
}

type CreatorRole string

const (
	CreatorRoleBuyer  CreatorRole = "buyer"
	CreatorRoleSeller CreatorRole = "seller"
)

func (r CreatorRole) IsValid() bool {
	return r == CreatorRoleBuyer || r == CreatorRoleSeller
}

func NewCreatorRole(role string) (CreatorRole, error) {
	r := CreatorRole(role)
	if !r.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "роль должна быть buyer или seller")
	}
	return r, nil
}

type MessageType string

const (
	MessageTypeText              MessageType = "text"
	MessageTypeOfferCreated      MessageType = "offer_created"
	MessageTypeOfferPaid         MessageType = "offer_paid"
	MessageTypeWorkSubmitted     MessageType = "work_submitted"
	MessageTypeWorkApproved      MessageType = "work_approved"
	MessageTypeRevisionRequested MessageType = "revision_requested"
)
