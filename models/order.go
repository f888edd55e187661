package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a table order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// ItemStatus is the per-line kitchen status
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityRush   Priority = "rush"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities for the kitchen board, higher first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityRush:
		return 2
	case PriorityHigh:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityRush, PriorityUrgent:
		return true
	}
	return false
}

type Order struct {
	ID            uint                 `json:"id" gorm:"primaryKey"`
	TableID       uint                 `json:"table_id" gorm:"not null;index"`
	Table         *Table               `json:"table,omitempty" gorm:"foreignKey:TableID"`
	Status        OrderStatus          `json:"status" gorm:"not null;default:'pending';index"`
	Priority      Priority             `json:"priority" gorm:"not null;default:'normal'"`
	StaffName     string               `json:"staff_name"`
	Notes         string               `json:"notes"`
	Subtotal      decimal.Decimal      `json:"subtotal" gorm:"type:decimal(10,2)"`
	Tax           decimal.Decimal      `json:"tax" gorm:"type:decimal(10,2)"`
	Total         decimal.Decimal      `json:"total" gorm:"type:decimal(10,2)"`
	Version       int                  `json:"version" gorm:"not null;default:1"`
	Items         []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`

	// derived on read, never stored
	ElapsedSeconds int64 `json:"elapsed_seconds" gorm:"-"`
}

// Elapsed is the time since the order was created.
func (o *Order) Elapsed(now time.Time) time.Duration {
	if o.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(o.CreatedAt)
}

// StampElapsed fills ElapsedSeconds for API responses.
func (o *Order) StampElapsed(now time.Time) {
	o.ElapsedSeconds = int64(o.Elapsed(now) / time.Second)
}

// AllItemsReady reports whether every line has reached the ready status.
// An order without items is never considered ready.
func (o *Order) AllItemsReady() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, it := range o.Items {
		if it.Status != ItemReady {
			return false
		}
	}
	return true
}

type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	ProductID uint            `json:"product_id" gorm:"not null"`
	Name      string          `json:"name"`                                          // snapshot name
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"` // snapshot price
	Quantity  int             `json:"quantity" gorm:"not null"`
	Notes     string          `json:"notes"`
	Status    ItemStatus      `json:"status" gorm:"not null;default:'pending'"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (i OrderItem) LinePrice() decimal.Decimal { return i.UnitPrice }
func (i OrderItem) LineQuantity() int          { return i.Quantity }

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
