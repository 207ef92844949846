package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// BusinessValidator handles request validation with the workflow's custom tags
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	// report json field names so errors match the wire format
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateLogin validates a login submission
func (bv *BusinessValidator) ValidateLogin(req *models.LoginSubmission) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if strings.TrimSpace(req.Password) == "" && req.Password != "" {
		errors = append(errors, ValidationError{
			Field:   "password",
			Message: "must not be blank",
			Rule:    "business_logic",
		})
	}

	return errors
}

// IsVerificationCode reports whether code is exactly six ASCII digits
func IsVerificationCode(code string) bool {
	return codePattern.MatchString(code)
}

func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("auth_provider", func(fl validator.FieldLevel) bool {
		return models.AuthProvider(fl.Field().String()).Valid()
	})

	bv.validate.RegisterValidation("verification_code", func(fl validator.FieldLevel) bool {
		return IsVerificationCode(fl.Field().String())
	})

	bv.validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}
