package models

import (
	"time"

	"github.com/google/uuid"
)

type PackageStatus string

// Статусы, которые реально хранятся в БД.
const (
	PackageStatusWaitingArrival PackageStatus = "waiting_arrival"
	PackageStatusInTransit      PackageStatus = "in_transit"
	PackageStatusArrived        PackageStatus = "arrived"
	PackageStatusDelivered      PackageStatus = "delivered"
)

// Display-only statuses. They exist in the label catalog and are never stored.
const (
	PackageStatusInChina     PackageStatus = "in_china"
	PackageStatusInWarehouse PackageStatus = "in_warehouse"
	PackageStatusReadyPickup PackageStatus = "ready_pickup"
)

var storedStatuses = []PackageStatus{
	PackageStatusWaitingArrival,
	PackageStatusInTransit,
	PackageStatusArrived,
	PackageStatusDelivered,
}

func StoredStatuses() []PackageStatus {
	out := make([]PackageStatus, len(storedStatuses))
	copy(out, storedStatuses)
	return out
}

func (s PackageStatus) Valid() bool {
	for _, st := range storedStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type Package struct {
	ID          uuid.UUID
	TrackNumber string
	Weight      float64
	PricePerKg  *float64
	TotalPrice  *float64
	Status      PackageStatus
	UserID      *uuid.UUID
	ClientCode  *string
	ArrivedAt   *time.Time
	DeliveredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PackageOwner is the profile a package resolved to, by user id or by client code.
type PackageOwner struct {
	UserID      uuid.UUID
	ClientCode  string
	FullName    string
	Phone       string
	PVZLocation PVZLocation
}

type PackageWithOwner struct {
	Package *Package
	Owner   *PackageOwner
}
