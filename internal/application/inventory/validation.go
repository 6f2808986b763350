package inventory

import (
	"github.com/commercehub/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// validateRequest runs struct tag validation and maps failures to the
// domain error taxonomy
func validateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return shared.NewValidationError(err.Error())
	}
	return nil
}

// requirePositive rejects zero and negative quantities. Decimal zero values
// pass the "required" struct tag, so quantity checks stay explicit.
func requirePositive(name string, quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError(name + " must be positive")
	}
	return nil
}
