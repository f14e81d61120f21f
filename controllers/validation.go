package controllers

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
			return currencyPattern.MatchString(fl.Field().String())
		})
	}
}

// fieldErrors flattens binding failures into field -> failed rule, e.g.
// {"Items[0].Quantity": "min"}. Non-validation errors (bad JSON) yield nil.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out[field] = fe.Tag()
	}
	return out
}
