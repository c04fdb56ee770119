package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/vnshop-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCartRepositoryTest(t *testing.T) (*GormCartRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:cart_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.ProductVariant{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate cart tables failed: %v", err)
	}
	return NewCartRepository(db), db
}

func TestCartUpsertCreatesThenReplacesQuantity(t *testing.T) {
	repo, db := setupCartRepositoryTest(t)

	if err := repo.Upsert(&models.CartItem{UserID: 1, ProductID: 10, Quantity: 2}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := repo.Upsert(&models.CartItem{UserID: 1, ProductID: 10, Quantity: 5}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	var items []models.CartItem
	if err := db.Where("user_id = ?", 1).Find(&items).Error; err != nil {
		t.Fatalf("load cart failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected single merged row, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected quantity replaced to 5, got %d", items[0].Quantity)
	}
}

func TestCartUpsertSeparatesVariants(t *testing.T) {
	repo, db := setupCartRepositoryTest(t)

	variantA := uint(100)
	variantB := uint(101)
	if err := repo.Upsert(&models.CartItem{UserID: 2, ProductID: 10, VariantID: &variantA, Quantity: 1}); err != nil {
		t.Fatalf("upsert variant a failed: %v", err)
	}
	if err := repo.Upsert(&models.CartItem{UserID: 2, ProductID: 10, VariantID: &variantB, Quantity: 1}); err != nil {
		t.Fatalf("upsert variant b failed: %v", err)
	}
	if err := repo.Upsert(&models.CartItem{UserID: 2, ProductID: 10, Quantity: 1}); err != nil {
		t.Fatalf("upsert without variant failed: %v", err)
	}

	var count int64
	db.Model(&models.CartItem{}).Where("user_id = ?", 2).Count(&count)
	if count != 3 {
		t.Fatalf("expected 3 distinct rows, got %d", count)
	}

	// 同规格再次加入仍然合并
	if err := repo.Upsert(&models.CartItem{UserID: 2, ProductID: 10, VariantID: &variantA, Quantity: 4}); err != nil {
		t.Fatalf("merge upsert failed: %v", err)
	}
	db.Model(&models.CartItem{}).Where("user_id = ?", 2).Count(&count)
	if count != 3 {
		t.Fatalf("expected still 3 rows, got %d", count)
	}
}

func TestCartDeleteScopedToUser(t *testing.T) {
	repo, db := setupCartRepositoryTest(t)

	item := models.CartItem{UserID: 3, ProductID: 11, Quantity: 1}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create cart item failed: %v", err)
	}

	if err := repo.DeleteByIDAndUser(item.ID, 99); err != nil {
		t.Fatalf("delete with wrong user failed: %v", err)
	}
	var count int64
	db.Model(&models.CartItem{}).Where("user_id = ?", 3).Count(&count)
	if count != 1 {
		t.Fatalf("wrong user must not delete, got %d rows", count)
	}

	if err := repo.DeleteByIDAndUser(item.ID, 3); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	db.Model(&models.CartItem{}).Where("user_id = ?", 3).Count(&count)
	if count != 0 {
		t.Fatalf("expected item deleted, got %d rows", count)
	}
}

func TestCartClearByUser(t *testing.T) {
	repo, db := setupCartRepositoryTest(t)

	for i := 0; i < 3; i++ {
		if err := db.Create(&models.CartItem{UserID: 4, ProductID: uint(20 + i), Quantity: 1}).Error; err != nil {
			t.Fatalf("create cart item failed: %v", err)
		}
	}
	if err := db.Create(&models.CartItem{UserID: 5, ProductID: 30, Quantity: 1}).Error; err != nil {
		t.Fatalf("create other user cart failed: %v", err)
	}

	if err := repo.ClearByUser(4); err != nil {
		t.Fatalf("clear cart failed: %v", err)
	}

	var cleared, kept int64
	db.Model(&models.CartItem{}).Where("user_id = ?", 4).Count(&cleared)
	db.Model(&models.CartItem{}).Where("user_id = ?", 5).Count(&kept)
	if cleared != 0 {
		t.Fatalf("expected cart cleared, got %d", cleared)
	}
	if kept != 1 {
		t.Fatalf("other user cart must stay, got %d", kept)
	}
}

func TestCartListByUserPreloads(t *testing.T) {
	repo, db := setupCartRepositoryTest(t)

	product := models.Product{
		CategoryID:  1,
		Slug:        "cart-preload",
		Name:        "Sản phẩm preload",
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(99000)),
		Stock:       5,
		IsActive:    true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if err := db.Create(&models.CartItem{UserID: 6, ProductID: product.ID, Quantity: 2}).Error; err != nil {
		t.Fatalf("create cart item failed: %v", err)
	}

	items, err := repo.ListByUser(6)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Product == nil || items[0].Product.Slug != "cart-preload" {
		t.Fatalf("expected product preloaded, got %+v", items[0].Product)
	}
	if !items[0].UnitPrice().Decimal.Equal(decimal.NewFromInt(99000)) {
		t.Fatalf("unexpected unit price: %s", items[0].UnitPrice().String())
	}
}
