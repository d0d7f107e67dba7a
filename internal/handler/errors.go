package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/dto"
	"go.uber.org/zap"
)

const internalErrorMessage = "internal server error"

func errorTitle(kind domain.ErrorKind) string {
	switch kind {
	case domain.KindValidation:
		return "Validation failed"
	case domain.KindAuth:
		return "Unauthorized"
	case domain.KindNotFound:
		return "Not found"
	case domain.KindConflict:
		return "Conflict"
	default:
		return "Internal server error"
	}
}

// writeError is the single translation point from service errors to responses.
// Unclassified errors are logged and answered with a fixed message.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	if appErr, ok := domain.AsError(err); ok && appErr.Kind != domain.KindInternal {
		c.JSON(appErr.HTTPStatus(), dto.ErrorResponse{
			Error:   errorTitle(appErr.Kind),
			Message: appErr.Message,
			Details: appErr.Detail,
		})
		return
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   errorTitle(domain.KindInternal),
		Message: internalErrorMessage,
	})
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// bindError converts a request binding failure into a validation error
func bindError(err error) *domain.Error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return domain.NewValidationError("invalid request body")
		}
		return domain.NewValidationError("invalid request")
	}

	messages := make([]string, 0, len(validationErrors))
	details := make([]fieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})

		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		case "strongpassword":
			messages = append(messages, fmt.Sprintf("%s must be 8 to 72 bytes long and contain uppercase, lowercase, number and symbol", fe.Field()))
		case "datetime":
			messages = append(messages, fmt.Sprintf("%s must use the %s format", fe.Field(), "YYYY-MM-DD"))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}

	return domain.NewValidationError(strings.Join(messages, "; ")).WithDetail(details)
}
