package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is the global validator instance
	Validate *validator.Validate

	digitsRegex = regexp.MustCompile(`^\d+$`)
	phoneRegex  = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`) // E.164 format
)

func init() {
	Validate = validator.New()

	// Register custom validators
	_ = Validate.RegisterValidation("card_number", validateCardNumber)
	_ = Validate.RegisterValidation("cvv", validateCVV)
	_ = Validate.RegisterValidation("expiry_month", validateExpiryMonth)
	_ = Validate.RegisterValidation("sensitivity", validateSensitivity)
	_ = Validate.RegisterValidation("risk_rule", validateRiskRule)
	_ = Validate.RegisterValidation("user_role", validateUserRole)
	_ = Validate.RegisterValidation("latitude", validateLatitude)
	_ = Validate.RegisterValidation("longitude", validateLongitude)
	_ = Validate.RegisterValidation("phone", validatePhone)
}

// ValidationError collects field-level validation failures.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for field, msg := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AddError records a failure for a field.
func (e *ValidationError) AddError(field, message string) {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}
	e.Errors[field] = message
}

// HasErrors reports whether any failures were recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// NewValidationError converts validator.ValidationErrors into a ValidationError.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fieldErr := range errs {
		ve.Errors[fieldErr.Field()] = fmt.Sprintf("failed %q validation", fieldErr.Tag())
	}
	return ve
}

// ValidateStruct validates a struct and returns a ValidationError if validation fails
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// validateCardNumber checks structure only: 13-19 digits after stripping
// separators. Checksum and brand rules live in the card package.
func validateCardNumber(fl validator.FieldLevel) bool {
	number := strings.NewReplacer(" ", "", "-", "").Replace(fl.Field().String())
	if !digitsRegex.MatchString(number) {
		return false
	}
	return len(number) >= 13 && len(number) <= 19
}

// validateCVV checks that a CVV is 3 or 4 digits. Brand-specific length
// matching happens during full card validation.
func validateCVV(fl validator.FieldLevel) bool {
	cvv := fl.Field().String()
	if !digitsRegex.MatchString(cvv) {
		return false
	}
	return len(cvv) == 3 || len(cvv) == 4
}

// validateExpiryMonth checks that the month is 1-12
func validateExpiryMonth(fl validator.FieldLevel) bool {
	month := fl.Field().Int()
	return month >= 1 && month <= 12
}

// validateSensitivity checks the fraud sensitivity level
func validateSensitivity(fl validator.FieldLevel) bool {
	return contains([]string{"low", "medium", "high"}, fl.Field().String())
}

// validateRiskRule checks that a rule name is one of the known analyzers
func validateRiskRule(fl validator.FieldLevel) bool {
	validRules := []string{"velocity", "geolocation", "device", "behavior", "card_pattern", "amount"}
	return contains(validRules, fl.Field().String())
}

// validateUserRole checks if user role is valid
func validateUserRole(fl validator.FieldLevel) bool {
	return contains([]string{"admin", "analyst", "service"}, fl.Field().String())
}

// validateLatitude checks if latitude is within valid range (-90 to 90)
func validateLatitude(fl validator.FieldLevel) bool {
	latitude := fl.Field().Float()
	return latitude >= -90.0 && latitude <= 90.0
}

// validateLongitude checks if longitude is within valid range (-180 to 180)
func validateLongitude(fl validator.FieldLevel) bool {
	longitude := fl.Field().Float()
	return longitude >= -180.0 && longitude <= 180.0
}

// validatePhone checks if phone number is in E.164 format
func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	item = strings.ToLower(strings.TrimSpace(item))
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// ValidateCoordinates validates latitude and longitude
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90.0 || latitude > 90.0 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", latitude)
	}
	if longitude < -180.0 || longitude > 180.0 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", longitude)
	}
	return nil
}

// ValidateAmount validates a monetary amount for scoring requests
func ValidateAmount(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("amount cannot be negative: %f", amount)
	}
	if amount > 1000000 {
		return fmt.Errorf("amount exceeds maximum allowed: %f", amount)
	}
	return nil
}

// ValidateUUID validates UUID format
func ValidateUUID(uuid string) bool {
	uuidRegex := regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	return uuidRegex.MatchString(uuid)
}
