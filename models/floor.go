package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableCleaning    TableStatus = "cleaning"
	TableMaintenance TableStatus = "maintenance"
	TableBlocked     TableStatus = "blocked"
)

var TableStatuses = []TableStatus{
	TableAvailable,
	TableOccupied,
	TableReserved,
	TableCleaning,
	TableMaintenance,
	TableBlocked,
}

type TableShape string

const (
	ShapeRound     TableShape = "round"
	ShapeSquare    TableShape = "square"
	ShapeRectangle TableShape = "rectangle"
	ShapeOval      TableShape = "oval"
)

func (s TableShape) Valid() bool {
	switch s {
	case ShapeRound, ShapeSquare, ShapeRectangle, ShapeOval:
		return true
	}
	return false
}

// TableFeatures are optional amenity flags, stored as a JSON column.
type TableFeatures struct {
	PowerOutlet   bool `json:"power_outlet,omitempty"`
	Accessible    bool `json:"accessible,omitempty"`
	WindowView    bool `json:"window_view,omitempty"`
	OutdoorHeater bool `json:"outdoor_heater,omitempty"`
	HighChair     bool `json:"high_chair,omitempty"`
}

func (f TableFeatures) Value() (driver.Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *TableFeatures) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = TableFeatures{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.New("table features: unsupported column type")
	}
	if len(raw) == 0 {
		*f = TableFeatures{}
		return nil
	}
	return json.Unmarshal(raw, f)
}

type Area struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	Capacity  int       `json:"capacity"`
	Outdoor   bool      `json:"outdoor"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	Active    bool      `json:"active"`
	Tables    []Table   `json:"tables,omitempty" gorm:"foreignKey:AreaID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Table struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	Number        int           `json:"number" gorm:"not null;uniqueIndex"`
	Capacity      int           `json:"capacity" gorm:"not null"`
	MinCapacity   int           `json:"min_capacity"`
	MaxCapacity   int           `json:"max_capacity"`
	Shape         TableShape    `json:"shape" gorm:"default:'square'"`
	AreaID        *uint         `json:"area_id" gorm:"index"`
	Area          *Area         `json:"area,omitempty" gorm:"foreignKey:AreaID"`
	Status        TableStatus   `json:"status" gorm:"not null;default:'available';index"`
	ActiveOrderID *uint         `json:"active_order_id"`
	ActiveOrder   *Order        `json:"active_order,omitempty" gorm:"-"`
	Features      TableFeatures `json:"features" gorm:"type:text"`
	PosX          float64       `json:"pos_x"`
	PosY          float64       `json:"pos_y"`
	Version       int           `json:"version" gorm:"not null;default:1"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
