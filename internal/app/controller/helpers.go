package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/payment/kakaopay"
	"github.com/ikkim/storefront-backend/pkg/util"
)

const (
	defaultPageSize  = 10
	publicPageSize   = 12
	defaultListLimit = 10
	maxListLimit     = 50
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// serviceErrors maps service sentinels to responses. The message is the
// error text itself, so wrapped errors carry their detail to the client.
var serviceErrors = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthInvalidCredentials},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, apperrors.AuthTokenInvalid},
	{service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.AuthEmailAlreadyExists},
	{service.ErrUsernameAlreadyExists, http.StatusConflict, apperrors.AuthUsernameExists},
	{util.ErrWeakPassword, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidResetToken, http.StatusBadRequest, apperrors.AuthResetTokenInvalid},
	{service.ErrCurrentPasswordWrong, http.StatusBadRequest, apperrors.AuthPasswordMismatch},
	{service.ErrPasswordUnchanged, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrResetDeliveryDisabled, http.StatusServiceUnavailable, apperrors.AuthResetUnavailable},
	{service.ErrUserNotFound, http.StatusNotFound, apperrors.ResourceNotFound},
	{service.ErrInvalidRole, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrUserAlreadyActive, http.StatusBadRequest, apperrors.ResourceNotDeleted},

	{service.ErrCategoryNotFound, http.StatusNotFound, apperrors.CategoryNotFound},
	{service.ErrCategoryAlreadyExists, http.StatusConflict, apperrors.CategoryAlreadyExists},
	{service.ErrCategoryNotDeleted, http.StatusBadRequest, apperrors.ResourceNotDeleted},
	{service.ErrCategoryNameRequired, http.StatusBadRequest, apperrors.ValidationRequired},

	{service.ErrProductNotFound, http.StatusNotFound, apperrors.ProductNotFound},
	{service.ErrProductNotDeleted, http.StatusBadRequest, apperrors.ResourceNotDeleted},
	{service.ErrProductNameRequired, http.StatusBadRequest, apperrors.ValidationRequired},
	{service.ErrInvalidPrice, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidPriceRange, http.StatusBadRequest, apperrors.ValidationInvalidRange},
	{service.ErrInvalidStockRange, http.StatusBadRequest, apperrors.ValidationInvalidRange},
	{service.ErrSkuNotFound, http.StatusNotFound, apperrors.SkuNotFound},
	{service.ErrSkuAlreadyExists, http.StatusConflict, apperrors.SkuAlreadyExists},

	{service.ErrCartItemNotFound, http.StatusNotFound, apperrors.CartItemNotFound},
	{service.ErrProductNotInCart, http.StatusNotFound, apperrors.CartItemNotFound},
	{service.ErrInsufficientStock, http.StatusBadRequest, apperrors.CartInsufficientStock},
	{service.ErrCartQuantityRequired, http.StatusBadRequest, apperrors.CartInvalidQuantity},
	{service.ErrCartQuantityNegative, http.StatusBadRequest, apperrors.CartInvalidQuantity},
	{service.ErrCartEmpty, http.StatusBadRequest, apperrors.CartEmpty},
	{service.ErrCartChanged, http.StatusConflict, apperrors.CartChanged},
	{service.ErrCartMergeSameUser, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	{service.ErrWishlistItemNotFound, http.StatusNotFound, apperrors.WishlistItemNotFound},
	{service.ErrWishlistItemExists, http.StatusConflict, apperrors.WishlistAlreadyExists},
	{service.ErrNoStockAvailable, http.StatusBadRequest, apperrors.WishlistNoStock},

	{service.ErrReviewNotFound, http.StatusNotFound, apperrors.ReviewNotFound},
	{service.ErrReviewAlreadyExists, http.StatusConflict, apperrors.ReviewAlreadyExists},
	{service.ErrReviewForbidden, http.StatusForbidden, apperrors.AuthzOwnerOnly},
	{service.ErrInvalidRating, http.StatusBadRequest, apperrors.ReviewInvalidRating},
	{service.ErrReviewTitleTooLong, http.StatusBadRequest, apperrors.ReviewTooLong},
	{service.ErrReviewCommentTooLong, http.StatusBadRequest, apperrors.ReviewTooLong},
	{service.ErrReviewAlreadyMarked, http.StatusConflict, apperrors.ReviewAlreadyMarked},

	{service.ErrRecommendationNotFound, http.StatusNotFound, apperrors.RecommendationNotFound},
	{service.ErrRecommendationForbidden, http.StatusForbidden, apperrors.AuthzOwnerOnly},
	{service.ErrInvalidScore, http.StatusBadRequest, apperrors.ValidationInvalidRange},
	{service.ErrInvalidRecommendation, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	{service.ErrOrderNotFound, http.StatusNotFound, apperrors.OrderNotFound},
	{service.ErrShippingAddressRequired, http.StatusBadRequest, apperrors.ValidationRequired},
	{service.ErrInvalidOrderStatus, http.StatusBadRequest, apperrors.OrderInvalidStatus},
	{service.ErrInvalidStatusTransition, http.StatusBadRequest, apperrors.OrderInvalidStatus},
	{service.ErrOrderNotCancellable, http.StatusBadRequest, apperrors.OrderNotCancellable},
	{service.ErrInvalidPaymentStatus, http.StatusBadRequest, apperrors.PaymentInvalidStatus},
	{service.ErrPaymentAlreadyProcessed, http.StatusConflict, apperrors.PaymentConflict},
	{service.ErrPaymentNotInitiated, http.StatusBadRequest, apperrors.PaymentInvalidStatus},
	{service.ErrPaymentNotRefundable, http.StatusBadRequest, apperrors.PaymentInvalidStatus},
	{service.ErrPgTokenRequired, http.StatusBadRequest, apperrors.ValidationRequired},
	{service.ErrPaymentUnavailable, http.StatusServiceUnavailable, apperrors.PaymentUnavailable},
	{kakaopay.ErrInvalidRequest, http.StatusBadGateway, apperrors.PaymentGatewayError},
	{kakaopay.ErrUnauthorized, http.StatusBadGateway, apperrors.PaymentGatewayError},
	{kakaopay.ErrPaymentFailed, http.StatusBadGateway, apperrors.PaymentGatewayError},
	{kakaopay.ErrNetworkError, http.StatusBadGateway, apperrors.PaymentGatewayError},

	{service.ErrInvalidUploadFolder, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrFilenameRequired, http.StatusBadRequest, apperrors.ValidationRequired},
	{service.ErrInvalidContentType, http.StatusBadRequest, apperrors.UploadInvalidFileType},
	{service.ErrFileTooLarge, http.StatusBadRequest, apperrors.UploadFileTooLarge},
	{service.ErrUploadUnavailable, http.StatusServiceUnavailable, apperrors.UploadFailed},
}

// respondError writes the mapped response for a known service error and
// falls back to the repository error parser for everything else.
func respondError(c *gin.Context, err error, context string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			apperrors.RespondWithError(c, m.status, m.code, capitalize(err.Error()))
			return
		}
	}

	middleware.GetLoggerFromContext(c).Error("Request failed", err, map[string]interface{}{
		"operation": context,
	})
	info := apperrors.ParseError(err, context)
	status := http.StatusInternalServerError
	switch info.Code {
	case apperrors.ResourceNotFound, apperrors.CategoryNotFound, apperrors.ProductNotFound:
		status = http.StatusNotFound
	case apperrors.ResourceAlreadyExists, apperrors.ResourceConflict, apperrors.AuthEmailAlreadyExists,
		apperrors.AuthUsernameExists, apperrors.SkuAlreadyExists, apperrors.WishlistAlreadyExists:
		status = http.StatusConflict
	case apperrors.ValidationRequired, apperrors.ValidationInvalidInput:
		status = http.StatusBadRequest
	}
	apperrors.RespondWithError(c, status, info.Code, info.Message)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// parseID reads a positive numeric path parameter, writing a 400 when it is not one.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// parsePagination reads page, size, sortBy and sortDir. The repository
// clamps out-of-range values and ignores unknown sort columns.
func parsePagination(c *gin.Context, fallbackSize int) repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, err := strconv.Atoi(c.Query("size"))
	if err != nil || size <= 0 {
		size = fallbackSize
	}
	return repository.Pagination{
		Page:    page,
		Size:    size,
		SortBy:  c.Query("sortBy"),
		SortDir: strings.ToLower(c.Query("sortDir")),
	}
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func queryFloat(c *gin.Context, key string) (*float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid "+key)
		return nil, false
	}
	return &v, true
}

func queryInt(c *gin.Context, key string) (*int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid "+key)
		return nil, false
	}
	return &v, true
}

// queryList accepts both repeated keys and comma separated values.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryIDs(c *gin.Context, key string) ([]uint, bool) {
	var ids []uint
	for _, raw := range queryList(c, key) {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+key)
			return nil, false
		}
		ids = append(ids, uint(id))
	}
	return ids, true
}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}

// IDsRequest is the body of every bulk endpoint.
type IDsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}
