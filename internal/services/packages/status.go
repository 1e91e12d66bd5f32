package packages

import (
	"math"
	"strings"
	"time"

	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/models"
)

// Transition moves p to the target status. Any stored status may follow any other;
// display-only statuses are rejected.
func Transition(p *models.Package, to models.PackageStatus, now time.Time) error {
	if !to.Valid() {
		return apperr.Validation("status must be one of " + storedStatusList())
	}
	p.Status = to
	switch to {
	case models.PackageStatusArrived:
		if p.ArrivedAt == nil {
			t := now
			p.ArrivedAt = &t
		}
	case models.PackageStatusDelivered:
		t := now
		p.DeliveredAt = &t
	}
	p.UpdatedAt = now
	return nil
}

// applyWeight sets weight, price and total. Total is weight times price only
// for a positive weight and a known price.
func applyWeight(p *models.Package, weight float64, pricePerKg *float64) {
	p.Weight = weight
	if weight <= 0 {
		p.TotalPrice = nil
		return
	}
	if pricePerKg == nil {
		p.PricePerKg = nil
		p.TotalPrice = nil
		return
	}
	price := *pricePerKg
	total := roundMoney(weight * price)
	p.PricePerKg = &price
	p.TotalPrice = &total
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func storedStatusList() string {
	all := models.StoredStatuses()
	names := make([]string, len(all))
	for i, st := range all {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
