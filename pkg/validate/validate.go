package validate

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// FieldError represents a single field validation failure.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

func (f FieldError) String() string {
	if f.Param != "" {
		return f.Field + " failed on " + f.Tag + "=" + f.Param
	}
	return f.Field + " failed on " + f.Tag
}

// Struct validates s against its `validate` tags and returns a VALIDATION
// AppError listing every failed field.
func Struct(s interface{}) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}

	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}.String())
	}
	return apperrors.NewValidationError(strings.Join(parts, "; "))
}

func get() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if comma := strings.Index(name, ","); comma != -1 {
				name = name[:comma]
			}
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("bloodtype", func(fl validator.FieldLevel) bool {
			return entities.BloodType(fl.Field().String()).IsValid()
		})
		_ = validate.RegisterValidation("urgency", func(fl validator.FieldLevel) bool {
			_, err := entities.ParseUrgency(fl.Field().String())
			return err == nil
		})
	})
	return validate
}
