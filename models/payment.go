package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

type Payment struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrderID        uint            `json:"order_id" gorm:"not null;index"`
	IdempotencyKey string          `json:"idempotency_key" gorm:"uniqueIndex;not null"`
	Reference      string          `json:"reference" gorm:"not null"`
	Method         PaymentMethod   `json:"method" gorm:"not null"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2)"`
	Tax            decimal.Decimal `json:"tax" gorm:"type:decimal(10,2)"`
	Tip            decimal.Decimal `json:"tip" gorm:"type:decimal(10,2)"`
	TipPercent     decimal.Decimal `json:"tip_percent" gorm:"type:decimal(6,2)"`
	Total          decimal.Decimal `json:"total" gorm:"type:decimal(10,2)"`
	Status         string          `json:"status" gorm:"not null;default:'approved'"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DailyReport is the snapshot written by the nightly job.
type DailyReport struct {
	ID             uint      `json:"id" gorm:"primaryKey" csv:"-"`
	Day            string    `json:"day" gorm:"uniqueIndex;not null" csv:"day"`
	Orders         int       `json:"orders" csv:"orders"`
	Revenue        float64   `json:"revenue" csv:"revenue"`
	Tips           float64   `json:"tips" csv:"tips"`
	AvgTicket      float64   `json:"avg_ticket" csv:"avg_ticket"`
	MedianTicket   float64   `json:"median_ticket" csv:"median_ticket"`
	P90PrepSeconds float64   `json:"p90_prep_seconds" csv:"p90_prep_seconds"`
	CreatedAt      time.Time `json:"created_at" csv:"-"`
	UpdatedAt      time.Time `json:"updated_at" csv:"-"`
}

// Tables lists every model for AutoMigrate.
var Tables = []interface{}{
	&Company{},
	&Role{},
	&User{},
	&Area{},
	&Table{},
	&Category{},
	&Subcategory{},
	&Product{},
	&Order{},
	&OrderItem{},
	&OrderStatusHistory{},
	&Payment{},
	&DailyReport{},
}
