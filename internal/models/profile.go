package models

import (
	"time"

	"github.com/google/uuid"
)

type PVZLocation string

const (
	PVZNariman   PVZLocation = "nariman"
	PVZZhiydalik PVZLocation = "zhiydalik"
	PVZDostuk    PVZLocation = "dostuk"
)

func (l PVZLocation) Valid() bool {
	switch l {
	case PVZNariman, PVZZhiydalik, PVZDostuk:
		return true
	}
	return false
}

type Account struct {
	ID           uuid.UUID
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Profile struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ClientCode  string
	FullName    string
	Phone       string
	PVZLocation PVZLocation
	TelegramID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfileCreateInput: пустой ClientCode означает "сгенерировать по ПВЗ".
type ProfileCreateInput struct {
	UserID      uuid.UUID
	ClientCode  string
	FullName    string
	Phone       string
	PVZLocation PVZLocation
	TelegramID  *string
	Role        Role
}

type ProfileUpdate struct {
	FullName    *string
	Phone       *string
	PVZLocation *PVZLocation
	ClientCode  *string
	TelegramID  *string
}

type ProfileFilter struct {
	PVZLocation PVZLocation
	Search      string
}

type PickupPoint struct {
	ID                    string
	Location              PVZLocation
	Name                  string
	Address               string
	ChinaWarehouseAddress string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
