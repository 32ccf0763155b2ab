package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"jobfair/pkg/logger"
	"jobfair/pkg/model"

	"github.com/go-playground/validator/v10"
)

var thaiPhoneRegex = regexp.MustCompile(`^(?:\+66|0)[0-9]{8,9}$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type UserValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewUserValidator(log *logger.Logger) *UserValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("thai_phone", validateThaiPhone); err != nil {
		log.Fatal("Failed to register 'thai_phone' validator",
			"error", err,
		)
	}

	log.Info("User validator initialized successfully")

	return &UserValidator{
		validate: v,
		logger:   log,
	}
}

func validateThaiPhone(fl validator.FieldLevel) bool {
	return thaiPhoneRegex.MatchString(fl.Field().String())
}

func (v *UserValidator) ValidateRegister(req *model.RegisterRequest) error {
	return v.validateStruct(req)
}

func (v *UserValidator) ValidateLogin(req *model.LoginRequest) error {
	return v.validateStruct(req)
}

func (v *UserValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *UserValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("Please add a %s", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "email":
			message = "Please add a valid email"
		case "thai_phone":
			message = "Please add a valid Thai telephone number"
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
