package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/caresync/portal-api/internal/model"
)

// hhmmPattern matches minute-granularity 24-hour wall-clock times.
var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// RegisterCustom installs the dayofweek and hhmm binding validators on
// gin's validator engine. Must run before any handler binds a request
// using those tags.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("dayofweek", func(fl validator.FieldLevel) bool {
		_, ok := model.DayOrder(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}

	return v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})
}

// ValidHHMM reports whether s is a minute-granularity 24-hour time.
func ValidHHMM(s string) bool {
	return hhmmPattern.MatchString(s)
}
