package statemachine

import (
	"restaurant-pos-api/models"
)

var itemTransitions = map[models.ItemStatus][]models.ItemStatus{
	models.ItemPending:   {models.ItemPreparing},
	models.ItemPreparing: {models.ItemReady, models.ItemPending},
	models.ItemReady:     {models.ItemPreparing},
}

// CanTransitionItem validates a per-line kitchen bump. Items are moved by staff only.
func CanTransitionItem(from, to models.ItemStatus, actor Actor) error {
	if actor == ActorSystem {
		return &ItemTransitionError{From: from, To: to}
	}
	for _, next := range itemTransitions[from] {
		if next == to {
			return nil
		}
	}
	return &ItemTransitionError{From: from, To: to}
}

// RollUp returns the order status implied by its items after an item bump, and
// whether the order should move. A preparing order with every line ready
// advances to ready; a ready order with a line back in the kitchen returns to
// preparing.
func RollUp(order *models.Order) (models.OrderStatus, bool) {
	switch {
	case order.Status == models.StatusPreparing && order.AllItemsReady():
		return models.StatusReady, true
	case order.Status == models.StatusReady && !order.AllItemsReady():
		return models.StatusPreparing, true
	}
	return order.Status, false
}

type ItemTransitionError struct {
	From models.ItemStatus
	To   models.ItemStatus
}

func (e *ItemTransitionError) Error() string {
	return "invalid item transition: " + string(e.From) + " → " + string(e.To)
}

func (e *ItemTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
