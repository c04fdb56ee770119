package service

import (
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/repository"
)

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	variantRepo repository.ProductVariantRepository
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, variantRepo repository.ProductVariantRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		variantRepo: variantRepo,
	}
}

// ListCart 获取用户购物车
func (s *CartService) ListCart(userID uint) ([]models.CartItem, error) {
	return s.cartRepo.ListByUser(userID)
}

// AddItemInput 添加购物车项输入
type AddItemInput struct {
	UserID    uint
	ProductID uint
	VariantID *uint
	Quantity  int
}

// AddItem 添加或更新购物车项
func (s *CartService) AddItem(input AddItemInput) (*models.CartItem, error) {
	if input.Quantity <= 0 {
		return nil, ErrCartQuantityInvalid
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}
	if input.VariantID != nil {
		variant, err := s.variantRepo.GetByID(*input.VariantID)
		if err != nil {
			return nil, err
		}
		if variant == nil || variant.ProductID != product.ID {
			return nil, ErrVariantNotFound
		}
		if !variant.IsActive {
			return nil, ErrVariantInactive
		}
	}

	item := &models.CartItem{
		UserID:    input.UserID,
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Quantity:  input.Quantity,
	}
	if err := s.cartRepo.Upsert(item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem 删除购物车项
func (s *CartService) RemoveItem(userID, itemID uint) error {
	return s.cartRepo.DeleteByIDAndUser(itemID, userID)
}

// ClearCart 清空购物车
func (s *CartService) ClearCart(userID uint) error {
	return s.cartRepo.ClearByUser(userID)
}
