// Package validator envuelve go-playground/validator usando los nombres JSON de los campos.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		}
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Struct valida s según sus tags `validate`. Devuelve nil si es válido o un mapa campo → mensaje.
func Struct(s any) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"body": err.Error()}
	}
	fields := make(map[string]string, len(ve))
	for _, e := range ve {
		fields[e.Field()] = message(e)
	}
	return fields
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "es requerido"
	case "oneof":
		return fmt.Sprintf("debe ser uno de: %s", e.Param())
	case "gt":
		return fmt.Sprintf("debe ser mayor que %s", e.Param())
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("longitud mínima %s", e.Param())
		}
		return fmt.Sprintf("debe ser mayor o igual a %s", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("longitud máxima %s", e.Param())
		}
		return fmt.Sprintf("debe ser menor o igual a %s", e.Param())
	default:
		return fmt.Sprintf("validación '%s' fallida", e.Tag())
	}
}
