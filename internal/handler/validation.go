package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rephrase-server/internal/model"
)

var setupValidationOnce sync.Once

// setupValidation включает строгий декодер и имена JSON полей в ошибках валидатора.
func setupValidation() {
	setupValidationOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// validationIssues переводит ошибку биндинга в список {path, message}.
// Для пустого или битого JSON список пуст.
func validationIssues(err error) []model.ValidationIssue {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		issues := make([]model.ValidationIssue, 0, len(verrs))
		for _, fe := range verrs {
			issues = append(issues, model.ValidationIssue{Path: fe.Field(), Message: issueMessage(fe)})
		}
		return issues
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []model.ValidationIssue{{
			Path:    typeErr.Field,
			Message: fmt.Sprintf("Expected %s, received %s", typeErr.Type.Kind(), typeErr.Value),
		}}
	}

	// encoding/json не экспортирует тип для неизвестного поля.
	const unknownFieldPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownFieldPrefix) {
		return []model.ValidationIssue{{
			Path:    strings.Trim(strings.TrimPrefix(msg, unknownFieldPrefix), `"`),
			Message: "Unrecognized key",
		}}
	}
	return nil
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "max":
		return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	case "uuid":
		return "Invalid uuid"
	default:
		return fmt.Sprintf("Failed on '%s' validation", fe.Tag())
	}
}
