package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/courseforge/backend/internal/models"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"go.uber.org/zap"
)

var (
	// ErrValidation marks a payload that failed validation; no mutation was attempted
	ErrValidation = errors.New("validation failed")
	// ErrForbidden marks a caller without the required role or ownership
	ErrForbidden = errors.New("insufficient permissions")
)

// ValidationError carries per-field messages keyed by JSON field name
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON field names instead of Go struct names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateStruct runs the validate tags of v and converts failures into a ValidationError
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate payload: %w", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Translate(translator)
	}
	return &ValidationError{Fields: fields}
}

// failureResult maps an operation error to a caller-facing result.
// Unexpected errors are logged and replaced by a generic message.
func failureResult(logger *zap.Logger, operation string, err error) models.OperationResult {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return models.OperationResult{Message: ErrValidation.Error(), Fields: vErr.Fields, Kind: models.FailureValidation}
	case errors.Is(err, ErrForbidden):
		return models.OperationResult{Message: ErrForbidden.Error(), Kind: models.FailureForbidden}
	case errors.Is(err, models.ErrNotFound):
		return models.OperationResult{Message: err.Error(), Kind: models.FailureNotFound}
	case errors.Is(err, models.ErrConflict):
		return models.OperationResult{Message: "resource already exists", Kind: models.FailureConflict}
	default:
		logger.Error(operation+" failed", zap.Error(err))
		return models.OperationResult{Message: "internal error", Kind: models.FailureInternal}
	}
}
