package fee

import (
	"slices"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/college/core"
)

var (
	payMethodTag  = "paymethod"
	payMethodText = "invalid payment method"
)

// InitValidators registers the fee validations and their messages.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(payMethodTag, payMethodValidation)
	core.RegisterCustomTranslation(validate, translator, payMethodTag, payMethodText)
}

// payMethodValidation checks that the value is one of Methods
func payMethodValidation(fl validator.FieldLevel) bool {
	return slices.Contains(Methods, Method(fl.Field().String()))
}
