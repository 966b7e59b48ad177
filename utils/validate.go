package utils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// entity IDs are the opaque identifiers the admin app hands out (cuid-like)
var entityIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Validate is the shared struct validator. It knows the "entityid" and
// "absurl" tags on top of the stock validator rules.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("entityid", func(fl validator.FieldLevel) bool {
		return ValidEntityID(fl.Field().String())
	})
	_ = v.RegisterValidation("absurl", func(fl validator.FieldLevel) bool {
		return ValidAbsoluteURL(fl.Field().String())
	})
	return v
}

// ValidEntityID reports whether id looks like an entity identifier.
func ValidEntityID(id string) bool {
	return entityIDPattern.MatchString(id)
}

// ValidAbsoluteURL accepts http and https URLs with a host.
func ValidAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Struct validates s and flattens validator errors into one readable error.
func Struct(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("validation error: %s", strings.Join(fields, ", "))
}
