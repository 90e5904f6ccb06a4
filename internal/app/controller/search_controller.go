package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
)

type SearchController struct {
	searchService service.SearchService
}

func NewSearchController(searchService service.SearchService) *SearchController {
	return &SearchController{searchService: searchService}
}

// bindSearch reads the advanced search query string:
// q, categoryIds, minPrice, maxPrice, sizes, colors, availableOnly, minStock,
// maxStock plus paging.
func bindSearch(c *gin.Context) (service.SearchRequest, bool) {
	req := service.SearchRequest{
		Query:      c.Query("q"),
		Sizes:      queryList(c, "sizes"),
		Colors:     queryList(c, "colors"),
		Pagination: parsePagination(c, publicPageSize),
	}

	var ok bool
	if req.CategoryIDs, ok = queryIDs(c, "categoryIds"); !ok {
		return req, false
	}
	if req.MinPrice, ok = queryFloat(c, "minPrice"); !ok {
		return req, false
	}
	if req.MaxPrice, ok = queryFloat(c, "maxPrice"); !ok {
		return req, false
	}
	if req.MinStock, ok = queryInt(c, "minStock"); !ok {
		return req, false
	}
	if req.MaxStock, ok = queryInt(c, "maxStock"); !ok {
		return req, false
	}
	req.AvailableOnly, _ = strconv.ParseBool(c.Query("availableOnly"))
	return req, true
}

// GET /api/v1/search
func (ctrl *SearchController) Search(c *gin.Context) {
	req, ok := bindSearch(c)
	if !ok {
		return
	}
	page, err := ctrl.searchService.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "search products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/search/stats
func (ctrl *SearchController) Stats(c *gin.Context) {
	req, ok := bindSearch(c)
	if !ok {
		return
	}
	stats, err := ctrl.searchService.Stats(req)
	if err != nil {
		respondError(c, err, "search stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/v1/search/name?q=
func (ctrl *SearchController) ByName(c *gin.Context) {
	page, err := ctrl.searchService.ByName(c.Request.Context(), c.Query("q"), parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "search products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/search/category/:categoryId
func (ctrl *SearchController) ByCategory(c *gin.Context) {
	categoryID, ok := parseID(c, "categoryId")
	if !ok {
		return
	}
	page, err := ctrl.searchService.ByCategory(categoryID, parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "search products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/search/price-range?minPrice=&maxPrice=
func (ctrl *SearchController) ByPriceRange(c *gin.Context) {
	min, ok := queryFloat(c, "minPrice")
	if !ok {
		return
	}
	max, ok := queryFloat(c, "maxPrice")
	if !ok {
		return
	}
	page, err := ctrl.searchService.ByPriceRange(min, max, parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "search products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/search/attributes?sizes=&colors=
func (ctrl *SearchController) ByAttributes(c *gin.Context) {
	page, err := ctrl.searchService.ByAttributes(queryList(c, "sizes"), queryList(c, "colors"), parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "search products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/search/availability?available=
func (ctrl *SearchController) ByAvailability(c *gin.Context) {
	available := true
	if raw := c.Query("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid available")
			return
		}
		available = v
	}
	page, err := ctrl.searchService.ByAvailability(available, parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "search products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/search/stock-range?minStock=&maxStock=
func (ctrl *SearchController) ByStockRange(c *gin.Context) {
	min, ok := queryInt(c, "minStock")
	if !ok {
		return
	}
	max, ok := queryInt(c, "maxStock")
	if !ok {
		return
	}
	page, err := ctrl.searchService.ByStockRange(min, max, parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "search products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/search/suggestions?q=
func (ctrl *SearchController) Suggestions(c *gin.Context) {
	suggestions, err := ctrl.searchService.Suggestions(c.Query("q"), parseLimit(c))
	if err != nil {
		respondError(c, err, "search suggestions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// GET /api/v1/search/popular
func (ctrl *SearchController) PopularSearches(c *gin.Context) {
	terms, err := ctrl.searchService.PopularSearches(c.Request.Context(), parseLimit(c))
	if err != nil {
		respondError(c, err, "popular searches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"searches": terms})
}

// GET /api/v1/search/popular-categories
func (ctrl *SearchController) PopularCategories(c *gin.Context) {
	categories, err := ctrl.searchService.PopularCategories(parseLimit(c))
	if err != nil {
		respondError(c, err, "popular categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GET /api/v1/filters/options
func (ctrl *SearchController) FilterOptions(c *gin.Context) {
	options, err := ctrl.searchService.FilterOptions(c.Request.Context())
	if err != nil {
		respondError(c, err, "filter options")
		return
	}
	c.JSON(http.StatusOK, options)
}
