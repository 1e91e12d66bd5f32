package packages

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/BearBump/CargoBox/internal/spreadsheet"
	"github.com/BearBump/CargoBox/internal/storage/pgcargo"
)

// ImportRequest maps sheet columns (1-based, 0 = not used) onto package fields.
type ImportRequest struct {
	Rows         [][]string
	TrackColumn  int
	WeightColumn int
	DateColumn   int
	// ArrivalDate overrides the date column for every row.
	ArrivalDate *time.Time
	// PricePerKg falls back to the configured price when nil.
	PricePerKg *float64
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Import marks the listed packages as in transit, creating the ones not seen yet.
// Rows are handled in order; a bad row is counted as skipped and the batch goes on.
// A cancelled ctx stops the loop and the result so far is returned with ctx.Err().
func (s *Service) Import(ctx context.Context, p access.Principal, req ImportRequest) (*ImportResult, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	if req.TrackColumn < 1 {
		return nil, apperr.Validation("track_column is required")
	}
	if req.WeightColumn < 0 || req.DateColumn < 0 {
		return nil, apperr.Validation("column numbers start at 1")
	}
	if req.PricePerKg != nil && *req.PricePerKg < 0 {
		return nil, apperr.Validation("price_per_kg must be positive")
	}

	price := req.PricePerKg
	if price == nil && s.prices != nil {
		v, err := s.prices.PricePerKg(ctx)
		if err != nil {
			return nil, err
		}
		price = v
	}

	res := &ImportResult{}
	for i, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		// +2: заголовок и нумерация с единицы, как в excel
		line := i + 2
		if err := s.importRow(ctx, req, price, row, res); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Row: line, Message: apperr.PublicMessage(err)})
			slog.Warn("package import row skipped", "row", line, "err", err)
		}
	}

	slog.Info("packages imported", "inserted", res.Inserted, "updated", res.Updated, "skipped", res.Skipped)
	return res, nil
}

func (s *Service) importRow(ctx context.Context, req ImportRequest, price *float64, row []string, res *ImportResult) error {
	track := spreadsheet.Cell(row, req.TrackColumn)
	if track == "" {
		res.Skipped++
		return nil
	}

	weight := 0.0
	if req.WeightColumn > 0 {
		if w, ok := spreadsheet.ParseNumber(spreadsheet.Cell(row, req.WeightColumn)); ok && w > 0 {
			weight = w
		}
	}

	now := s.now()
	arrivedAt := now
	switch {
	case req.ArrivalDate != nil:
		arrivedAt = req.ArrivalDate.UTC()
	case req.DateColumn > 0:
		if raw := spreadsheet.Cell(row, req.DateColumn); raw != "" {
			d, ok := spreadsheet.ParseDate(raw)
			if !ok {
				return apperr.Validation(fmt.Sprintf("cannot parse date %q", raw))
			}
			arrivedAt = d
		}
	}

	existing, err := s.repo.GetPackageByTrackNumber(ctx, track)
	if err == nil {
		existing.Status = models.PackageStatusInTransit
		existing.ArrivedAt = &arrivedAt
		if weight > 0 {
			applyWeight(existing, weight, price)
		}
		if err := s.repo.UpdatePackage(ctx, existing); err != nil {
			return err
		}
		res.Updated++
		return nil
	}
	if !stderrors.Is(err, pgcargo.ErrNotFound) {
		return err
	}

	pkg := &models.Package{
		TrackNumber: track,
		Status:      models.PackageStatusInTransit,
		ArrivedAt:   &arrivedAt,
	}
	applyWeight(pkg, weight, price)
	if err := s.repo.CreatePackage(ctx, pkg); err != nil {
		return err
	}
	res.Inserted++
	return nil
}
