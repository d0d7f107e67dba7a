package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/wegift/auth-service/internal/utils"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding rules on gin's validator.
// Field names in errors are taken from json tags.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected binding validator engine")
			return
		}

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		registerErr = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return utils.ValidatePassword(fl.Field().String())
		})
	})
	return registerErr
}
