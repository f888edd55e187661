package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleWaiter  UserRole = "waiter"
	RoleKitchen UserRole = "kitchen"
	RoleCashier UserRole = "cashier"
)

var UserRoles = []UserRole{RoleAdmin, RoleManager, RoleWaiter, RoleKitchen, RoleCashier}

func (r UserRole) Valid() bool {
	for _, v := range UserRoles {
		if r == v {
			return true
		}
	}
	return false
}

type Company struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	TaxID     string    `json:"tax_id"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Currency  string    `json:"currency" gorm:"default:'USD'"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role is an editable permission set shown in organization settings.
type Role struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null;uniqueIndex"`
	Description string    `json:"description"`
	Permissions string    `json:"permissions"` // comma separated
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	CompanyID    *uint      `json:"company_id"`
	RoleID       *uint      `json:"role_id"`
	Name         string     `json:"name" gorm:"not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	Role         UserRole   `json:"role" gorm:"not null;default:'waiter'"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
