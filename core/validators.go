package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	bpsTag  = "bps"
	bpsText = "must be between 0 and 10000 basis points"

	periodTag   = "period"
	periodText  = "must be a settlement period in YYYY-MM format"
	periodRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(bpsTag, bpsValidation)
	RegisterCustomTranslation(validate, translator, bpsTag, bpsText)

	_ = validate.RegisterValidation(periodTag, periodValidation)
	RegisterCustomTranslation(validate, translator, periodTag, periodText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// bpsValidation bounds a fixed-point percentage to [0, 10000] basis points.
func bpsValidation(fl validator.FieldLevel) bool {
	bps := fl.Field().Int()
	return bps >= 0 && bps <= 10000
}

// periodValidation checks the YYYY-MM settlement period format.
func periodValidation(fl validator.FieldLevel) bool {
	return periodRegex.MatchString(fl.Field().String())
}
