package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BearBump/CargoBox/internal/access"
	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/clientcode"
	"github.com/BearBump/CargoBox/internal/services/privileged"
	"github.com/BearBump/CargoBox/internal/spreadsheet"
)

// Допустимые заголовки колонок, сравниваются без регистра, пробелов и "_".
var headerAliases = map[string][]string{
	"client_code": {"ID", "Код", "Код_пользователя"},
	"full_name":   {"Имя", "ФИО", "Name", "FullName"},
	"phone":       {"Телефон", "Номер", "Phone", "Number"},
	"password":    {"Пароль", "Password", "Pwd"},
}

type ImportError struct {
	Row        int    `json:"row"`
	ClientCode string `json:"client_code,omitempty"`
	Message    string `json:"message"`
}

type ImportResult struct {
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
	Errors  []ImportError `json:"errors,omitempty"`
}

// Import creates one user per row through create-user. Rows are independent:
// a failed row is reported and nothing already created is rolled back.
func (s *Service) Import(ctx context.Context, p access.Principal, t *spreadsheet.Table) (*ImportResult, error) {
	if err := s.guard.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.Validation("file is empty")
	}
	cols := matchColumns(t.Header)
	for field := range headerAliases {
		if cols[field] == 0 {
			return nil, apperr.Validation(fmt.Sprintf("column for %s not found", field))
		}
	}

	res := &ImportResult{}
	fail := func(row int, code, msg string) {
		res.Failed++
		res.Errors = append(res.Errors, ImportError{Row: row, ClientCode: code, Message: msg})
	}

	for i, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line := i + 2

		in := privileged.CreateUserInput{
			ClientCode: clientcode.Normalize(spreadsheet.Cell(row, cols["client_code"])),
			FullName:   spreadsheet.Cell(row, cols["full_name"]),
			Phone:      spreadsheet.Cell(row, cols["phone"]),
			Password:   spreadsheet.Cell(row, cols["password"]),
		}
		if in.ClientCode == "" || in.FullName == "" || in.Phone == "" || in.Password == "" {
			fail(line, in.ClientCode, "missing required fields")
			continue
		}
		loc, ok := clientcode.Derive(in.ClientCode)
		if !ok {
			fail(line, in.ClientCode, "client code must start with YQ, YX or JL")
			continue
		}
		in.PVZLocation = loc

		if _, err := s.creator.CreateUser(ctx, p, in); err != nil {
			slog.Warn("user import row failed", "row", line, "client_code", in.ClientCode, "err", err)
			fail(line, in.ClientCode, apperr.PublicMessage(err))
			continue
		}
		res.Success++
	}

	slog.Info("users imported", "success", res.Success, "failed", res.Failed)
	return res, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "\u00a0", "").Replace(h)
}

// matchColumns maps field name to a 1-based column; 0 when absent.
func matchColumns(header []string) map[string]int {
	out := make(map[string]int, len(headerAliases))
	for i, h := range header {
		n := normalizeHeader(h)
		for field, aliases := range headerAliases {
			if out[field] != 0 {
				continue
			}
			for _, a := range aliases {
				if normalizeHeader(a) == n {
					out[field] = i + 1
					break
				}
			}
		}
	}
	return out
}
