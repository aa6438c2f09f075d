package services

import "github.com/ArowuTest/recyclehub-backend/internal/models"

// TransitionEffect is the side effect a permitted status change requires
type TransitionEffect int

const (
	EffectDenied   TransitionEffect = iota
	EffectAccept                    // assign the acting collector
	EffectStart                     // assigned collector starts the pickup
	EffectComplete                  // record actual weights and credit points
	EffectReject                    // record the rejection reason
)

func (e TransitionEffect) String() string {
	switch e {
	case EffectAccept:
		return "accept"
	case EffectStart:
		return "start"
	case EffectComplete:
		return "complete"
	case EffectReject:
		return "reject"
	}
	return "denied"
}

// Transition is the whole collection state machine. Any pair not listed,
// including every exit from a terminal status, is denied.
func Transition(from, to models.CollectionStatus) TransitionEffect {
	switch from {
	case models.CollectionStatusPending:
		switch to {
		case models.CollectionStatusOccupied, models.CollectionStatusInProgress:
			return EffectAccept
		case models.CollectionStatusRejected:
			return EffectReject
		}
	case models.CollectionStatusOccupied:
		if to == models.CollectionStatusInProgress {
			return EffectStart
		}
	case models.CollectionStatusInProgress:
		switch to {
		case models.CollectionStatusCompleted:
			return EffectComplete
		case models.CollectionStatusRejected:
			return EffectReject
		}
	}
	return EffectDenied
}
