package errors

// Error codes returned in ErrorResponse.Error.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to localized messages.

const (
	// auth
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthUsernameExists     = "AUTH_USERNAME_EXISTS"
	AuthAccountDisabled    = "AUTH_ACCOUNT_DISABLED"
	AuthResetTokenInvalid  = "AUTH_RESET_TOKEN_INVALID"
	AuthPasswordMismatch   = "AUTH_PASSWORD_MISMATCH"
	AuthResetUnavailable   = "AUTH_RESET_UNAVAILABLE"

	// authorization
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"
	AuthzOwnerOnly = "AUTHZ_OWNER_ONLY"

	// validation
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceNotDeleted    = "RESOURCE_NOT_DELETED"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// catalog
	CategoryNotFound      = "CATEGORY_NOT_FOUND"
	CategoryAlreadyExists = "CATEGORY_ALREADY_EXISTS"
	ProductNotFound       = "PRODUCT_NOT_FOUND"
	SkuNotFound           = "SKU_NOT_FOUND"
	SkuAlreadyExists      = "SKU_ALREADY_EXISTS"

	// cart
	CartItemNotFound      = "CART_ITEM_NOT_FOUND"
	CartInsufficientStock = "CART_INSUFFICIENT_STOCK"
	CartInvalidQuantity   = "CART_INVALID_QUANTITY"
	CartEmpty             = "CART_EMPTY"
	CartChanged           = "CART_CHANGED"

	// wishlist
	WishlistItemNotFound  = "WISHLIST_ITEM_NOT_FOUND"
	WishlistAlreadyExists = "WISHLIST_ALREADY_EXISTS"
	WishlistNoStock       = "WISHLIST_NO_STOCK"

	// reviews
	ReviewNotFound         = "REVIEW_NOT_FOUND"
	ReviewInvalidRating    = "REVIEW_INVALID_RATING"
	ReviewTooLong          = "REVIEW_TOO_LONG"
	ReviewAlreadyExists    = "REVIEW_ALREADY_EXISTS"
	ReviewAlreadyMarked    = "REVIEW_ALREADY_MARKED"
	RecommendationNotFound = "RECOMMENDATION_NOT_FOUND"

	// orders
	OrderNotFound        = "ORDER_NOT_FOUND"
	OrderInvalidStatus   = "ORDER_INVALID_STATUS"
	OrderNotCancellable  = "ORDER_NOT_CANCELLABLE"
	PaymentInvalidStatus = "PAYMENT_INVALID_STATUS"
	PaymentConflict      = "PAYMENT_ALREADY_PROCESSED"
	PaymentUnavailable   = "PAYMENT_UNAVAILABLE"
	PaymentGatewayError  = "PAYMENT_GATEWAY_ERROR"

	// uploads
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// rate limiting
	RateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
