package errors

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrorInfo pairs an error code with a client-facing message
type ErrorInfo struct {
	Code    string
	Message string
}

// Postgres SQLSTATE codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqNotNullViolation    = "23502"
	pqCheckViolation      = "23514"
)

// ParseError converts a repository error into a code and a safe message.
// Database internals are never echoed back to the client.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "An internal error occurred"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: getNotFoundMessage(context)}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return parseDuplicateKeyError(pqErr.Constraint + " " + pqErr.Message)
		case pqForeignKeyViolation:
			return parseForeignKeyError(pqErr.Message)
		case pqNotNullViolation:
			return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing: " + pqErr.Column}
		case pqCheckViolation:
			return ErrorInfo{Code: ValidationInvalidInput, Message: "Input value is out of range"}
		}
	}

	// pgx and sqlite report constraint failures as plain text
	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "duplicate key"),
		strings.Contains(errLower, "unique constraint"):
		return parseDuplicateKeyError(errLower)
	case strings.Contains(errLower, "foreign key constraint"):
		return parseForeignKeyError(errLower)
	case strings.Contains(errLower, "not-null constraint"),
		strings.Contains(errLower, "not null constraint"):
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	case strings.Contains(errLower, "connection refused"),
		strings.Contains(errLower, "no such host"),
		strings.Contains(errLower, "timeout"):
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A backing service is unavailable. Please try again later",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: getDefaultErrorMessage(context)}
}

func parseDuplicateKeyError(detail string) ErrorInfo {
	detail = strings.ToLower(detail)
	switch {
	case strings.Contains(detail, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "Email is already in use"}
	case strings.Contains(detail, "username"):
		return ErrorInfo{Code: AuthUsernameExists, Message: "Username is already taken"}
	case strings.Contains(detail, "sku"):
		return ErrorInfo{Code: SkuAlreadyExists, Message: "SKU code already exists"}
	case strings.Contains(detail, "wishlist"):
		return ErrorInfo{Code: WishlistAlreadyExists, Message: "Product is already in the wishlist"}
	case strings.Contains(detail, "review"):
		return ErrorInfo{Code: ReviewAlreadyMarked, Message: "Review was already marked"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "Resource already exists"}
}

func parseForeignKeyError(detail string) ErrorInfo {
	detail = strings.ToLower(detail)
	if strings.Contains(detail, "still referenced") {
		return ErrorInfo{Code: ResourceConflict, Message: "Resource is still referenced by other records"}
	}
	switch {
	case strings.Contains(detail, "category"):
		return ErrorInfo{Code: CategoryNotFound, Message: "Referenced category does not exist"}
	case strings.Contains(detail, "product"):
		return ErrorInfo{Code: ProductNotFound, Message: "Referenced product does not exist"}
	case strings.Contains(detail, "user"):
		return ErrorInfo{Code: ResourceNotFound, Message: "Referenced user does not exist"}
	}
	return ErrorInfo{Code: ResourceNotFound, Message: "Referenced resource does not exist"}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)
	for _, entity := range []string{"category", "product", "sku", "cart", "wishlist", "review", "order", "user"} {
		if strings.Contains(contextLower, entity) {
			return strings.ToUpper(entity[:1]) + entity[1:] + " not found"
		}
	}
	return "Requested resource not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)
	switch {
	case strings.Contains(contextLower, "create"), strings.Contains(contextLower, "add"):
		return "Failed to create resource. Please try again later"
	case strings.Contains(contextLower, "update"):
		return "Failed to update resource. Please try again later"
	case strings.Contains(contextLower, "delete"), strings.Contains(contextLower, "remove"):
		return "Failed to delete resource. Please try again later"
	}
	return "An internal error occurred. Please try again later"
}

// ParseAndRespond parses err and writes it as an ErrorResponse
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
