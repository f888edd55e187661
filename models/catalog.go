package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	Name          string        `json:"name" gorm:"not null"`
	Description   string        `json:"description"`
	Icon          string        `json:"icon"`
	Active        bool          `json:"active"`
	Subcategories []Subcategory `json:"subcategories,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type Subcategory struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	CategoryID  uint      `json:"category_id" gorm:"not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	Products    []Product `json:"products,omitempty" gorm:"foreignKey:SubcategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Product struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	SubcategoryID uint            `json:"subcategory_id" gorm:"not null;index"`
	Name          string          `json:"name" gorm:"not null"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	ImageURL      string          `json:"image_url"`
	Icon          string          `json:"icon"`
	Available     bool            `json:"available"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
