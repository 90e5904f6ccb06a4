package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrCartQuantityRequired = errors.New("quantity must be greater than zero")
	ErrCartQuantityNegative = errors.New("quantity must not be negative")
	ErrCartEmpty            = errors.New("cart is empty")
	ErrCartChanged          = errors.New("cart changed during checkout")
	ErrCartMergeSameUser    = errors.New("cannot merge a cart into itself")
	ErrProductNotInCart     = errors.New("product not in cart")
)

// InsufficientStockError carries the stock left for the requested SKU.
type InsufficientStockError struct {
	SkuID     uint
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Available: %d", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type CartItemRequest struct {
	SkuID    uint
	Quantity int
}

type CartItemUpdate struct {
	ItemID   uint
	Quantity int
}

type CartService interface {
	GetCart(userID uint) (*model.Cart, error)
	AddItem(userID, skuID uint, quantity int) (*model.Cart, error)
	UpdateItem(userID, itemID uint, quantity int) (*model.Cart, error)
	RemoveItem(userID, itemID uint) (*model.Cart, error)
	RemoveProduct(userID, productID uint) (*model.Cart, error)
	Clear(userID uint) error
	Merge(userID, secondaryUserID uint) (*model.Cart, error)
	Copy(fromUserID, toUserID uint) (*model.Cart, error)
	IsEmpty(userID uint) (bool, error)
	HasItem(userID, skuID uint) (bool, error)
	ItemCount(userID uint) (int64, error)
	BulkAdd(userID uint, items []CartItemRequest) *BulkResult
	BulkUpdate(userID uint, updates []CartItemUpdate) *BulkResult
	BulkRemove(userID uint, itemIDs []uint) *BulkResult
	Stats() (repository.CartStats, error)
	SweepIdle(maxIdle time.Duration) (int, error)
}

type cartService struct {
	cartRepo repository.CartRepository
	skuRepo  repository.SkuRepository
}

func NewCartService(cartRepo repository.CartRepository, skuRepo repository.SkuRepository) CartService {
	return &cartService{
		cartRepo: cartRepo,
		skuRepo:  skuRepo,
	}
}

func (s *cartService) GetCart(userID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(userID)
	if err != nil {
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return cart, nil
}

func (s *cartService) AddItem(userID, skuID uint, quantity int) (*model.Cart, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":  userID,
		"sku_id":   skuID,
		"quantity": quantity,
	})

	cart, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	if err := s.addToCart(cart.ID, skuID, quantity); err != nil {
		return nil, err
	}
	return s.GetCart(userID)
}

// addToCart adds quantity to the line for skuID, creating it when needed.
// The resulting line quantity must fit the SKU's stock.
func (s *cartService) addToCart(cartID, skuID uint, quantity int) error {
	if quantity <= 0 {
		return ErrCartQuantityRequired
	}

	sku, err := s.skuRepo.FindActiveByID(skuID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: SKU not found", map[string]interface{}{
				"cart_id": cartID,
				"sku_id":  skuID,
			})
			return ErrSkuNotFound
		}
		return err
	}

	existing, err := s.cartRepo.FindItemBySku(cartID, skuID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing cart item", err, map[string]interface{}{
			"cart_id": cartID,
			"sku_id":  skuID,
		})
		return err
	}

	newQty := quantity
	if existing != nil {
		newQty = existing.Quantity + quantity
	}
	if newQty > sku.Quantity {
		logger.Warn("Cannot add to cart: insufficient stock", map[string]interface{}{
			"cart_id":   cartID,
			"sku_id":    skuID,
			"requested": newQty,
			"available": sku.Quantity,
		})
		return &InsufficientStockError{SkuID: skuID, Available: sku.Quantity}
	}

	if existing != nil {
		existing.Quantity = newQty
		return s.cartRepo.UpdateItem(existing)
	}
	return s.cartRepo.CreateItem(&model.CartItem{
		CartID:    cartID,
		ProductID: sku.ProductID,
		SkuID:     skuID,
		Quantity:  newQty,
	})
}

func (s *cartService) UpdateItem(userID, itemID uint, quantity int) (*model.Cart, error) {
	logger.Info("Updating cart item", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	cart, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	if err := s.updateItem(cart.ID, itemID, quantity); err != nil {
		return nil, err
	}
	return s.GetCart(userID)
}

func (s *cartService) updateItem(cartID, itemID uint, quantity int) error {
	if quantity < 0 {
		return ErrCartQuantityNegative
	}
	item, err := s.cartRepo.FindItem(cartID, itemID)
	if err != nil {
		return notFound(err, ErrCartItemNotFound)
	}
	if quantity == 0 {
		return notFound(s.cartRepo.DeleteItem(cartID, itemID), ErrCartItemNotFound)
	}

	available := 0
	if item.Sku != nil {
		available = item.Sku.Quantity
	}
	if quantity > available {
		return &InsufficientStockError{SkuID: item.SkuID, Available: available}
	}

	item.Quantity = quantity
	return s.cartRepo.UpdateItem(item)
}

func (s *cartService) RemoveItem(userID, itemID uint) (*model.Cart, error) {
	cart, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.DeleteItem(cart.ID, itemID); err != nil {
		return nil, notFound(err, ErrCartItemNotFound)
	}
	logger.Info("Cart item removed", map[string]interface{}{
		"user_id":      userID,
		"cart_item_id": itemID,
	})
	return s.GetCart(userID)
}

func (s *cartService) RemoveProduct(userID, productID uint) (*model.Cart, error) {
	cart, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	removed, err := s.cartRepo.DeleteItemsByProduct(cart.ID, productID)
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, ErrProductNotInCart
	}
	return s.GetCart(userID)
}

func (s *cartService) Clear(userID uint) error {
	cart, err := s.GetCart(userID)
	if err != nil {
		return err
	}
	if err := s.cartRepo.ClearItems(cart.ID); err != nil {
		return err
	}
	logger.Info("Cart cleared", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

// Merge moves the secondary user's items into the user's cart. Items that
// break the stock rules are skipped; the secondary cart ends up empty.
func (s *cartService) Merge(userID, secondaryUserID uint) (*model.Cart, error) {
	if userID == secondaryUserID {
		return nil, ErrCartMergeSameUser
	}
	primary, err := s.GetCart(userID)
	if err != nil {
		return nil, err
	}
	secondary, err := s.GetCart(secondaryUserID)
	if err != nil {
		return nil, err
	}

	for _, item := range secondary.Items {
		if err := s.addToCart(primary.ID, item.SkuID, item.Quantity); err != nil {
			logger.Warn("Skipping cart item during merge", map[string]interface{}{
				"user_id":   userID,
				"from_user": secondaryUserID,
				"sku_id":    item.SkuID,
				"error":     err.Error(),
			})
		}
	}
	if err := s.cartRepo.ClearItems(secondary.ID); err != nil {
		return nil, err
	}

	logger.Info("Carts merged", map[string]interface{}{
		"user_id":   userID,
		"from_user": secondaryUserID,
		"items":     len(secondary.Items),
	})
	return s.GetCart(userID)
}

// Copy replaces the destination cart's items with the source cart's items.
func (s *cartService) Copy(fromUserID, toUserID uint) (*model.Cart, error) {
	if fromUserID == toUserID {
		return nil, ErrCartMergeSameUser
	}
	source, err := s.GetCart(fromUserID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetCart(toUserID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.ClearItems(target.ID); err != nil {
		return nil, err
	}

	for _, item := range source.Items {
		line := &model.CartItem{
			CartID:    target.ID,
			ProductID: item.ProductID,
			SkuID:     item.SkuID,
			Quantity:  item.Quantity,
		}
		if err := s.cartRepo.CreateItem(line); err != nil {
			return nil, err
		}
	}

	logger.Info("Cart copied", map[string]interface{}{
		"from_user": fromUserID,
		"to_user":   toUserID,
		"items":     len(source.Items),
	})
	return s.GetCart(toUserID)
}

func (s *cartService) IsEmpty(userID uint) (bool, error) {
	count, err := s.ItemCount(userID)
	return count == 0, err
}

func (s *cartService) HasItem(userID, skuID uint) (bool, error) {
	cart, err := s.cartRepo.FindByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, err = s.cartRepo.FindItemBySku(cart.ID, skuID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ItemCount is the number of lines in the cart.
func (s *cartService) ItemCount(userID uint) (int64, error) {
	cart, err := s.cartRepo.FindByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.cartRepo.CountItems(cart.ID)
}

func (s *cartService) BulkAdd(userID uint, items []CartItemRequest) *BulkResult {
	result := newBulkResult()
	cart, err := s.GetCart(userID)
	if err != nil {
		result.fail(err.Error())
		return result
	}
	for _, item := range items {
		if err := s.addToCart(cart.ID, item.SkuID, item.Quantity); err != nil {
			logger.Warn("Bulk add skipped item", map[string]interface{}{
				"user_id": userID,
				"sku_id":  item.SkuID,
				"error":   err.Error(),
			})
			result.fail(fmt.Sprintf("sku %d: %v", item.SkuID, err))
			continue
		}
		result.ok()
	}
	return result
}

func (s *cartService) BulkUpdate(userID uint, updates []CartItemUpdate) *BulkResult {
	result := newBulkResult()
	cart, err := s.GetCart(userID)
	if err != nil {
		result.fail(err.Error())
		return result
	}
	for _, update := range updates {
		if err := s.updateItem(cart.ID, update.ItemID, update.Quantity); err != nil {
			logger.Warn("Bulk update skipped item", map[string]interface{}{
				"user_id":      userID,
				"cart_item_id": update.ItemID,
				"error":        err.Error(),
			})
			result.fail(fmt.Sprintf("item %d: %v", update.ItemID, err))
			continue
		}
		result.ok()
	}
	return result
}

func (s *cartService) BulkRemove(userID uint, itemIDs []uint) *BulkResult {
	result := newBulkResult()
	cart, err := s.GetCart(userID)
	if err != nil {
		result.fail(err.Error())
		return result
	}
	for _, id := range itemIDs {
		if err := s.cartRepo.DeleteItem(cart.ID, id); err != nil {
			err = notFound(err, ErrCartItemNotFound)
			result.fail(fmt.Sprintf("item %d: %v", id, err))
			continue
		}
		result.ok()
	}
	return result
}

func (s *cartService) Stats() (repository.CartStats, error) {
	return s.cartRepo.Stats()
}

// SweepIdle empties carts nobody touched within maxIdle and returns how many.
func (s *cartService) SweepIdle(maxIdle time.Duration) (int, error) {
	ids, err := s.cartRepo.FindIdleCartIDs(time.Now().Add(-maxIdle))
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, id := range ids {
		if err := s.cartRepo.ClearItems(id); err != nil {
			logger.Error("Failed to sweep idle cart", err, map[string]interface{}{
				"cart_id": id,
			})
			continue
		}
		swept++
	}
	if swept > 0 {
		logger.Info("Idle carts swept", map[string]interface{}{
			"carts": swept,
		})
	}
	return swept, nil
}
