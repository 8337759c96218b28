package validators

import (
	"reflect"
	"regexp"

	"companyinfo/cmd/internal/domain/ingest"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

var (
	hasSpaces = regexp.MustCompile(`\s+`)
	byteSize  = regexp.MustCompile(`^[0-9]+[KMGTP]?$`)
)

// New returns a validator with every custom tag of the project registered.
func New() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("policy", Policy)
	_ = validate.RegisterValidation("safepolicy", SafePolicy)
	_ = validate.RegisterValidation("keycase", KeyCase)
	_ = validate.RegisterValidation("bytesize", ByteSize)
	_ = validate.RegisterValidation("nospaces", NoWhiteSpaces)
	return validate
}

// Policy accepts any reconciliation policy name ParsePolicy understands.
func Policy(fl validator.FieldLevel) bool {
	val, ok := stringField(fl)
	if !ok {
		return false
	}

	_, err := ingest.ParsePolicy(val)
	return err == nil
}

// SafePolicy is Policy without the destructive ones, for defaults.
func SafePolicy(fl validator.FieldLevel) bool {
	val, ok := stringField(fl)
	if !ok {
		return false
	}

	p, err := ingest.ParsePolicy(val)
	return err == nil && !p.Destructive()
}

func KeyCase(fl validator.FieldLevel) bool {
	val, ok := stringField(fl)
	if !ok {
		return false
	}

	_, err := ingest.ParseKeyCase(val)
	return err == nil
}

// ByteSize accepts sizes in the format of echo's BodyLimit, e.g. "30M".
func ByteSize(fl validator.FieldLevel) bool {
	val, ok := stringField(fl)
	return ok && byteSize.MatchString(val)
}

// NoWhiteSpaces returns false if the string contains any whitespace (rejecting the user input).
func NoWhiteSpaces(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return !hasSpaces.MatchString(field.String())
}

func stringField(fl validator.FieldLevel) (string, bool) {
	field := fl.Field()
	if field.Kind() != reflect.String {
		log.Warnf("validator '%s' applied to non-string type: %s", fl.GetTag(), field.Kind().String())
		return "", false
	}
	return field.String(), true
}
