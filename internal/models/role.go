package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	// RoleNone is what an identity without a role row resolves to.
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RolePVZ   Role = "pvz"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePVZ, RoleAdmin:
		return true
	}
	return false
}

type RoleAssignment struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Role      Role
	CreatedAt time.Time

	// Filled from the profile when listing, may be empty.
	ClientCode string
	FullName   string
}
