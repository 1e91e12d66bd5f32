// Package validation checks request structs and turns failures into apperr validation errors.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/BearBump/CargoBox/internal/apperr"
	"github.com/BearBump/CargoBox/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// в сообщениях поле называется так же, как в JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("pvz", func(fl validator.FieldLevel) bool {
		return models.PVZLocation(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("package_status", func(fl validator.FieldLevel) bool {
		return models.PackageStatus(fl.Field().String()).Valid()
	})
	return v
}

// Struct validates s and reports the first failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request")
	}
	return apperr.Validation(message(verrs[0]))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte", "gt":
		return fmt.Sprintf("%s must be positive", fe.Field())
	case "pvz":
		return fmt.Sprintf("%s must be one of nariman, zhiydalik, dostuk", fe.Field())
	case "role":
		return fmt.Sprintf("%s must be one of user, pvz, admin", fe.Field())
	case "package_status":
		names := make([]string, 0, 4)
		for _, st := range models.StoredStatuses() {
			names = append(names, string(st))
		}
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.Join(names, ", "))
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
