package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/scan-service/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// InitValidator initializes the validator with custom validators
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		registerCustom(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerCustom(v)
		}
	})

	return validate
}

func registerCustom(v *validator.Validate) {
	_ = v.RegisterValidation("scan_mode", validateScanMode)
	_ = v.RegisterValidation("shipping_type", validateShippingType)
	_ = v.RegisterValidation("safe_string", validateSafeString)

	// Use JSON tag names for error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

// GetValidator returns the singleton validator instance
func GetValidator() *validator.Validate {
	if validate == nil {
		return InitValidator()
	}
	return validate
}

var safeStringRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!?@#$%&*()+=:;'"<>\/\[\]{}|\\~\x60]+$`)

func validateScanMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "prepare", "shipping", "receive", "checking", "location":
		return true
	}
	return false
}

func validateShippingType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "delivery", "pickup":
		return true
	}
	return false
}

func validateSafeString(fl validator.FieldLevel) bool {
	return safeStringRegex.MatchString(fl.Field().String())
}

// ValidationErrorFormatter formats validation errors into a field map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "scan_mode":
		return "must be one of: prepare, shipping, receive, checking, location"
	case "shipping_type":
		return "must be one of: delivery, pickup"
	case "safe_string":
		return "contains invalid characters"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// ValidateStruct validates a struct using the shared validator
func ValidateStruct(obj interface{}) *errors.AppError {
	if err := GetValidator().Struct(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrValidation(err.Error())
	}
	return nil
}
