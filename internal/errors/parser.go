package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a code plus a message safe to show to clients
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps gorm and driver errors to a client-facing code. Driver
// detail stays in the logs. context names the resource or action, e.g.
// "design" or "create user".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	errLower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// Postgres 23505 / sqlite UNIQUE constraint failed
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errLower, "duplicate key") ||
		strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	// Postgres 23503 / sqlite FOREIGN KEY constraint failed
	if errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: "Referenced " + resourceName(context) + " does not exist",
		}
	}

	// Postgres 23502 / sqlite NOT NULL constraint failed
	if strings.Contains(errLower, "not-null constraint") || strings.Contains(errLower, "not null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "A required field is missing",
		}
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A backing service is unavailable, please try again later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "email") {
		return ErrorInfo{
			Code:    AuthEmailAlreadyExists,
			Message: "Email is already registered",
		}
	}
	if strings.Contains(errLower, "cart_design") || strings.Contains(errLower, "cart_items") {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "The cart changed concurrently, please retry",
		}
	}
	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "Already exists",
	}
}

func resourceName(context string) string {
	contextLower := strings.ToLower(context)
	for _, name := range []string{"design", "cart", "user", "product", "session"} {
		if strings.Contains(contextLower, name) {
			return name
		}
	}
	return "resource"
}

func getNotFoundMessage(context string) string {
	name := resourceName(context)
	return strings.ToUpper(name[:1]) + name[1:] + " not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create") || strings.Contains(contextLower, "save"):
		return "Failed to save, please try again later"
	case strings.Contains(contextLower, "delete") || strings.Contains(contextLower, "remove"):
		return "Failed to delete, please try again later"
	case strings.Contains(contextLower, "upload"):
		return "Upload failed, please try again later"
	}
	return "Something went wrong, please try again later"
}

// ParseAndRespond parses err and writes the envelope with statusCode
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
