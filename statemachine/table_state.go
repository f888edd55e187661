package statemachine

import (
	"errors"

	"restaurant-pos-api/models"
)

var ErrUnknownTableStatus = errors.New("unknown table status")

// ValidTableStatus checks the enum. Tables have no guarded machine: any status
// may be set from any other.
func ValidTableStatus(s models.TableStatus) error {
	for _, v := range models.TableStatuses {
		if v == s {
			return nil
		}
	}
	return ErrUnknownTableStatus
}

// CanSeat reports whether a new order may be opened on a table in this status.
func CanSeat(s models.TableStatus) bool {
	return s == models.TableAvailable || s == models.TableReserved || s == models.TableOccupied
}
