package config

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	pluginNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	envKeyPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// validatorInstance configures and returns the shared validator instance.
// Field names in validation errors use the toml/yaml/json key rather than the
// Go field name so messages match what users wrote.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"toml", "yaml", "json"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})

		_ = v.RegisterValidation("plugin_name", func(fl validator.FieldLevel) bool {
			return IsValidPluginName(fl.Field().String())
		})

		_ = v.RegisterValidation("env_key", func(fl validator.FieldLevel) bool {
			return envKeyPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns the shared validator for use outside the config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// IsValidPluginName reports whether name is safe to use as both a registry
// key and a directory name.
func IsValidPluginName(name string) bool {
	if len(name) == 0 || len(name) > 128 {
		return false
	}
	return pluginNamePattern.MatchString(name)
}

// FirstViolation summarises a validator error as the offending field path and
// a short human-readable reason.
func FirstViolation(err error) (string, string) {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		if err == nil {
			return "", ""
		}
		return "", err.Error()
	}
	fe := errs[0]
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return field, "is required"
	case "plugin_name":
		return field, "must contain only letters, digits, '.', '_' or '-' and start and end with a letter or digit"
	case "env_key":
		return field, "must be a valid environment variable name"
	case "oneof":
		return field, "must be one of: " + fe.Param()
	case "min":
		return field, "must be at least " + fe.Param()
	case "max":
		return field, "must be at most " + fe.Param()
	case "url":
		return field, "must be a valid URL"
	default:
		return field, "failed " + fe.Tag() + " validation"
	}
}
