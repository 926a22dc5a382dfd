package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Wallet type validation
	validate.RegisterValidation("wallet_type", func(fl validator.FieldLevel) bool {
		wt := fl.Field().String()
		return wt == "cash" || wt == "credit"
	})

	// Annual rate: decimal in [0, 0.10]
	validate.RegisterValidation("listing_rate", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromFloat(0.10))
	})

	// Positive decimal amount
	validate.RegisterValidation("positive_amount", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		if !ok {
			return false
		}
		return d.IsPositive()
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too small (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too large (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "wallet_type":
			errors[field] = "Invalid wallet type. Must be: cash or credit"
		case "listing_rate":
			errors[field] = "Rate must be between 0 and 0.10"
		case "positive_amount":
			errors[field] = "Amount must be greater than zero"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
