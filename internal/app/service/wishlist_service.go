package service

import (
	"errors"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrWishlistItemNotFound = errors.New("wishlist item not found")
	ErrWishlistItemExists   = errors.New("product already in wishlist")
	ErrNoStockAvailable     = errors.New("no SKU in stock for this product")
)

type WishlistStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

type WishlistedProduct struct {
	Product       model.Product `json:"product"`
	WishlistCount int64         `json:"wishlist_count"`
}

type WishlistService interface {
	Add(userID, productID uint) (*model.WishlistItem, error)
	Remove(userID, productID uint) error
	Clear(userID uint) (int64, error)
	List(userID uint) ([]model.WishlistItem, error)
	ListPage(userID uint, p repository.Pagination) (*repository.Page[model.WishlistItem], error)
	Check(userID, productID uint) (bool, error)
	Count(userID uint) (int64, error)
	IsEmpty(userID uint) (bool, error)
	ByCategory(userID, categoryID uint) ([]model.WishlistItem, error)
	Recent(userID uint, limit int) ([]model.WishlistItem, error)
	MostWishlisted(limit int) ([]WishlistedProduct, error)
	Stats(userID uint) (*WishlistStats, error)
	BulkAdd(userID uint, productIDs []uint) *BulkResult
	BulkRemove(userID uint, productIDs []uint) *BulkResult
	MoveToCart(userID, productID uint) (*model.Cart, error)
	MoveAllToCart(userID uint) *BulkResult
	Restore(id uint) (*model.WishlistItem, error)
	HardDelete(id uint) error
}

type wishlistService struct {
	wishlistRepo repository.WishlistRepository
	productRepo  repository.ProductRepository
	skuRepo      repository.SkuRepository
	cartService  CartService
}

func NewWishlistService(
	wishlistRepo repository.WishlistRepository,
	productRepo repository.ProductRepository,
	skuRepo repository.SkuRepository,
	cartService CartService,
) WishlistService {
	return &wishlistService{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
		skuRepo:      skuRepo,
		cartService:  cartService,
	}
}

// Add wishlists an active product. A previously removed row is restored
// instead of inserting a duplicate.
func (s *wishlistService) Add(userID, productID uint) (*model.WishlistItem, error) {
	logger.Info("Adding to wishlist", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	if _, err := s.productRepo.FindByID(productID, repository.ScopeActive); err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}

	existing, err := s.wishlistRepo.FindByUserAndProductUnscoped(userID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		if !existing.DeletedAt.Valid {
			logger.Warn("Product already in wishlist", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrWishlistItemExists
		}
		if err := s.wishlistRepo.Restore(existing.ID); err != nil {
			return nil, err
		}
		return s.wishlistRepo.FindByUserAndProduct(userID, productID)
	}

	item := &model.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.wishlistRepo.Create(item); err != nil {
		return nil, err
	}

	logger.Info("Added to wishlist", map[string]interface{}{
		"wishlist_item_id": item.ID,
	})
	return item, nil
}

func (s *wishlistService) Remove(userID, productID uint) error {
	if err := s.wishlistRepo.Delete(userID, productID); err != nil {
		return notFound(err, ErrWishlistItemNotFound)
	}
	logger.Info("Removed from wishlist", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})
	return nil
}

func (s *wishlistService) Clear(userID uint) (int64, error) {
	return s.wishlistRepo.DeleteAll(userID)
}

func (s *wishlistService) List(userID uint) ([]model.WishlistItem, error) {
	return s.wishlistRepo.FindByUserID(userID)
}

func (s *wishlistService) ListPage(userID uint, p repository.Pagination) (*repository.Page[model.WishlistItem], error) {
	return s.wishlistRepo.FindPage(userID, p)
}

func (s *wishlistService) Check(userID, productID uint) (bool, error) {
	_, err := s.wishlistRepo.FindByUserAndProduct(userID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *wishlistService) Count(userID uint) (int64, error) {
	return s.wishlistRepo.Count(userID)
}

func (s *wishlistService) IsEmpty(userID uint) (bool, error) {
	count, err := s.wishlistRepo.Count(userID)
	return count == 0, err
}

func (s *wishlistService) ByCategory(userID, categoryID uint) ([]model.WishlistItem, error) {
	return s.wishlistRepo.FindByCategory(userID, categoryID)
}

func (s *wishlistService) Recent(userID uint, limit int) ([]model.WishlistItem, error) {
	return s.wishlistRepo.FindRecent(userID, clampLimit(limit, 5, maxListLimit))
}

func (s *wishlistService) MostWishlisted(limit int) ([]WishlistedProduct, error) {
	counts, err := s.wishlistRepo.MostWishlisted(clampLimit(limit, 10, maxListLimit))
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(counts))
	for i, c := range counts {
		ids[i] = c.ProductID
	}
	products, err := s.productRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	result := make([]WishlistedProduct, 0, len(counts))
	for _, c := range counts {
		if product, ok := byID[c.ProductID]; ok {
			result = append(result, WishlistedProduct{Product: product, WishlistCount: c.Count})
		}
	}
	return result, nil
}

func (s *wishlistService) Stats(userID uint) (*WishlistStats, error) {
	total, err := s.wishlistRepo.CountAll(userID)
	if err != nil {
		return nil, err
	}
	active, err := s.wishlistRepo.Count(userID)
	if err != nil {
		return nil, err
	}
	return &WishlistStats{Total: total, Active: active}, nil
}

func (s *wishlistService) BulkAdd(userID uint, productIDs []uint) *BulkResult {
	result := newBulkResult()
	for _, id := range productIDs {
		if _, err := s.Add(userID, id); err != nil {
			result.fail(fmt.Sprintf("product %d: %v", id, err))
			continue
		}
		result.ok()
	}
	return result
}

func (s *wishlistService) BulkRemove(userID uint, productIDs []uint) *BulkResult {
	result := newBulkResult()
	for _, id := range productIDs {
		if err := s.Remove(userID, id); err != nil {
			result.fail(fmt.Sprintf("product %d: %v", id, err))
			continue
		}
		result.ok()
	}
	return result
}

// MoveToCart puts one unit of the product's first in-stock SKU in the cart
// and drops the product from the wishlist.
func (s *wishlistService) MoveToCart(userID, productID uint) (*model.Cart, error) {
	if _, err := s.wishlistRepo.FindByUserAndProduct(userID, productID); err != nil {
		return nil, notFound(err, ErrWishlistItemNotFound)
	}

	sku, err := s.skuRepo.FindFirstInStock(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoStockAvailable
		}
		return nil, err
	}

	cart, err := s.cartService.AddItem(userID, sku.ID, 1)
	if err != nil {
		return nil, err
	}
	if err := s.wishlistRepo.Delete(userID, productID); err != nil {
		return nil, notFound(err, ErrWishlistItemNotFound)
	}

	logger.Info("Moved wishlist item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"sku_id":     sku.ID,
	})
	return cart, nil
}

func (s *wishlistService) MoveAllToCart(userID uint) *BulkResult {
	result := newBulkResult()
	items, err := s.wishlistRepo.FindByUserID(userID)
	if err != nil {
		result.fail(err.Error())
		return result
	}
	for _, item := range items {
		if _, err := s.MoveToCart(userID, item.ProductID); err != nil {
			logger.Warn("Could not move wishlist item to cart", map[string]interface{}{
				"user_id":    userID,
				"product_id": item.ProductID,
				"error":      err.Error(),
			})
			result.fail(fmt.Sprintf("product %d: %v", item.ProductID, err))
			continue
		}
		result.ok()
	}
	return result
}

func (s *wishlistService) Restore(id uint) (*model.WishlistItem, error) {
	item, err := s.wishlistRepo.FindByIDUnscoped(id)
	if err != nil {
		return nil, notFound(err, ErrWishlistItemNotFound)
	}
	if !item.DeletedAt.Valid {
		return item, nil
	}
	active, err := s.wishlistRepo.FindByUserAndProduct(item.UserID, item.ProductID)
	if err == nil && active.ID != id {
		return nil, ErrWishlistItemExists
	}
	if err := s.wishlistRepo.Restore(id); err != nil {
		return nil, notFound(err, ErrWishlistItemNotFound)
	}
	return s.wishlistRepo.FindByIDUnscoped(id)
}

func (s *wishlistService) HardDelete(id uint) error {
	if err := s.wishlistRepo.HardDelete(id); err != nil {
		return notFound(err, ErrWishlistItemNotFound)
	}
	logger.Info("Wishlist item permanently deleted", map[string]interface{}{
		"wishlist_item_id": id,
	})
	return nil
}
