package statemachine

import (
	"errors"
	"strings"

	"restaurant-pos-api/models"
)

// Actor is who performs a transition.
type Actor string

const (
	ActorStaff   Actor = "staff"
	ActorManager Actor = "manager"
	ActorSystem  Actor = "system"
)

// ActorForRole maps a user role to the actor used for transition checks.
func ActorForRole(role models.UserRole) Actor {
	switch role {
	case models.RoleAdmin, models.RoleManager:
		return ActorManager
	default:
		return ActorStaff
	}
}

type Direction string

const (
	Forward Direction = "forward"
	Back    Direction = "back"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From      models.OrderStatus `json:"from"`
	To        models.OrderStatus `json:"to"`
	Label     string             `json:"label"`
	Direction Direction          `json:"direction"`
	Actors    []Actor            `json:"actors"`
}

// Action is a button the UI may show for an order.
type Action struct {
	Label     string             `json:"label"`
	To        models.OrderStatus `json:"to"`
	Direction Direction          `json:"direction"`
}

var ErrInvalidTransition = errors.New("invalid transition")

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	{From: models.StatusPending, To: models.StatusPreparing, Label: "Start Preparing", Direction: Forward, Actors: []Actor{ActorStaff}},
	{From: models.StatusPreparing, To: models.StatusReady, Label: "Mark Ready", Direction: Forward, Actors: []Actor{ActorStaff, ActorSystem}},
	{From: models.StatusReady, To: models.StatusDelivered, Label: "Mark Delivered", Direction: Forward, Actors: []Actor{ActorStaff, ActorSystem}},
	{From: models.StatusReady, To: models.StatusPreparing, Label: "Back", Direction: Back, Actors: []Actor{ActorStaff, ActorSystem}},
	{From: models.StatusPreparing, To: models.StatusPending, Label: "Back", Direction: Back, Actors: []Actor{ActorStaff}},
	// payment closes the order
	{From: models.StatusDelivered, To: models.StatusCompleted, Label: "Complete", Direction: Forward, Actors: []Actor{ActorSystem}},
	{From: models.StatusPending, To: models.StatusCancelled, Label: "Cancel", Direction: Forward, Actors: []Actor{ActorManager}},
	{From: models.StatusPreparing, To: models.StatusCancelled, Label: "Cancel", Direction: Forward, Actors: []Actor{ActorManager}},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		for _, a := range t.Actors {
			m[transitionKey{t.From, t.To, a}] = true
			// managers inherit every staff transition
			if a == ActorStaff {
				m[transitionKey{t.From, t.To, ActorManager}] = true
			}
		}
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor Actor) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return &TransitionError{From: from, To: to, Actor: actor}
}

// ActionsFor returns the buttons valid for an order in the given status, in table order.
func ActionsFor(status models.OrderStatus, actor Actor) []Action {
	actions := []Action{}
	for _, t := range validTransitions {
		if t.From != status {
			continue
		}
		if !transitionMap[transitionKey{t.From, t.To, actor}] {
			continue
		}
		actions = append(actions, Action{Label: t.Label, To: t.To, Direction: t.Direction})
	}
	return actions
}

// IsActive reports whether an order still belongs on service screens.
func IsActive(status models.OrderStatus) bool {
	switch status {
	case models.StatusPending, models.StatusPreparing, models.StatusReady, models.StatusDelivered:
		return true
	}
	return false
}

// IsKitchen reports whether an order belongs on the kitchen display.
func IsKitchen(status models.OrderStatus) bool {
	switch status {
	case models.StatusPending, models.StatusPreparing, models.StatusReady:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(status models.OrderStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}

// TransitionError describes a rejected transition.
type TransitionError struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

func (e *TransitionError) Error() string {
	return "invalid transition: " + string(e.From) + " → " + string(e.To) +
		" is not allowed for actor '" + string(e.Actor) + "'. " +
		"Valid transitions from " + string(e.From) + " are: " + describeValidFrom(e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
