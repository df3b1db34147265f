package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Language is a user-scoped tag. (UserID, Name) is unique, so the same name
// may exist under different owners but never twice under one.
type Language struct {
	ID     int64
	UserID string
	Name   string
}

type Appointment struct {
	ID          int64
	UserID      string
	Title       string
	TimeMinutes int
	Price       decimal.Decimal
	Link        string
	Description string
	Languages   []Language
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
