package forms

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// portfolioPattern accepts bare domains and http(s) URLs with an optional path.
var portfolioPattern = regexp.MustCompile(`^(https?://)?(www\.)?[a-zA-Z0-9-]{2,}(\.[a-zA-Z]{2,})+(:\d+)?(/\S*)?$`)

// DateTimeLayouts are the layouts an HTML datetime-local input produces.
var DateTimeLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

// Validate returns the validator shared by every record schema. Issue
// paths come from json tags and the portfolio and datetimelocal tags are
// registered on it.
func Validate() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("portfolio", func(fl validator.FieldLevel) bool {
			return portfolioPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("datetimelocal", func(fl validator.FieldLevel) bool {
			return ParseDateTime(fl.Field().String()) == nil
		})
		validate = v
	})
	return validate
}

// ParseDateTime checks s against DateTimeLayouts.
func ParseDateTime(s string) error {
	var err error
	for _, layout := range DateTimeLayouts {
		if _, err = time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: %w", s, err)
}

// tagMessage builds the default message for a failed tag.
func tagMessage(fe validator.FieldError) string {
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "invalid email"
	case "url", "portfolio":
		return "invalid url"
	case "datetimelocal":
		return "invalid date"
	case "numeric":
		return "expected number"
	case "oneof":
		return fmt.Sprintf("invalid enum value. expected %s", strings.Join(strings.Fields(fe.Param()), " | "))
	case "len":
		return fmt.Sprintf("string must contain exactly %s character(s)", fe.Param())
	case "min":
		if numeric {
			return fmt.Sprintf("number must be greater than or equal to %s", fe.Param())
		}
		return fmt.Sprintf("string must contain at least %s character(s)", fe.Param())
	case "max":
		if numeric {
			return fmt.Sprintf("number must be less than or equal to %s", fe.Param())
		}
		return fmt.Sprintf("string must contain at most %s character(s)", fe.Param())
	case "gt":
		return fmt.Sprintf("number must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("number must be greater than or equal to %s", fe.Param())
	case "lt":
		return fmt.Sprintf("number must be less than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("number must be less than or equal to %s", fe.Param())
	default:
		return "invalid value"
	}
}
