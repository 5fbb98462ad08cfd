package submission

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

var (
	typeTag  = "submissiontype"
	typeText = "type must be one of " + typeNames()
)

func typeNames() string {
	names := make([]string, 0, len(Types))
	for _, t := range Types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

// InitValidators registers the submission validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(typeTag, func(fl validator.FieldLevel) bool {
		return Type(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, typeTag, typeText)
}
