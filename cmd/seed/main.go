package main

import (
	"fmt"
	"os"

	"github.com/vnshop-next/internal/config"
	"github.com/vnshop-next/internal/logger"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/repository"
	"github.com/vnshop-next/internal/service"

	"github.com/shopspring/decimal"
)

func vnd(amount int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(amount))
}

func vndPtr(amount int64) *models.Money {
	m := vnd(amount)
	return &m
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加分类
	categories := []models.Category{
		{Slug: "electronics", Name: "Điện tử", SortOrder: 300},
		{Slug: "fashion", Name: "Thời trang", SortOrder: 200},
		{Slug: "home-living", Name: "Nhà cửa & Đời sống", SortOrder: 100},
	}

	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			// 不存在则创建
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	// 获取分类ID
	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Where("slug IN ?", []string{"electronics", "fashion", "home-living"}).Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}
	electronicsID := categoryIDs["electronics"]
	fashionID := categoryIDs["fashion"]
	homeID := categoryIDs["home-living"]

	// 添加商品
	products := []models.Product{
		{
			Slug:        "tai-nghe-bluetooth",
			Name:        "Tai nghe Bluetooth không dây",
			Description: "Âm thanh chất lượng cao, pin 24 giờ, chống ồn chủ động.",
			PriceAmount: vnd(790000),
			Stock:       120,
			CategoryID:  electronicsID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1590658268037-6bf12165a8df?w=800",
			}),
			IsActive:  true,
			SortOrder: 900,
		},
		{
			Slug:          "dong-ho-thong-minh",
			Name:          "Đồng hồ thông minh",
			Description:   "Theo dõi sức khỏe, chống nước, thông báo cuộc gọi và tin nhắn.",
			PriceAmount:   vnd(2490000),
			DiscountPrice: vndPtr(1990000),
			Stock:         60,
			CategoryID:    electronicsID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1579586337278-3befd40fd17a?w=800",
			}),
			IsActive:  true,
			SortOrder: 880,
		},
		{
			Slug:        "sac-du-phong",
			Name:        "Sạc dự phòng 20000mAh",
			Description: "Sạc nhanh PD 20W, hai cổng ra, tương thích đa thiết bị.",
			PriceAmount: vnd(450000),
			Stock:       200,
			CategoryID:  electronicsID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1609091839311-d5365f9ff1c5?w=800",
			}),
			IsActive:  true,
			SortOrder: 860,
		},
		{
			Slug:        "ao-thun-cotton",
			Name:        "Áo thun cotton",
			Description: "Chất liệu cotton 100%, thoáng mát, nhiều màu và kích cỡ.",
			PriceAmount: vnd(190000),
			Stock:       0, // 库存以规格行为准
			CategoryID:  fashionID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=800",
			}),
			IsActive:  true,
			SortOrder: 840,
		},
		{
			Slug:        "balo-du-lich",
			Name:        "Balo du lịch đa năng",
			Description: "Chống nước, ngăn laptop 15.6 inch, cổng sạc USB.",
			PriceAmount: vnd(650000),
			Stock:       45,
			CategoryID:  fashionID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=800",
			}),
			IsActive:  true,
			SortOrder: 820,
		},
		{
			Slug:        "binh-giu-nhiet",
			Name:        "Bình giữ nhiệt 500ml",
			Description: "Giữ nóng 12 giờ, giữ lạnh 24 giờ, inox 304.",
			PriceAmount: vnd(280000),
			Stock:       150,
			CategoryID:  homeID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1602143407151-7111542de6e8?w=800",
			}),
			IsActive:  true,
			SortOrder: 800,
		},
		{
			Slug:        "demo-het-hang",
			Name:        "Sản phẩm demo - Hết hàng",
			Description: "Dùng để kiểm tra trạng thái hết hàng trên cửa hàng.",
			PriceAmount: vnd(99000),
			Stock:       0,
			CategoryID:  homeID,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1512499617640-c74ae3a79d37?w=800",
			}),
			IsActive:  true,
			SortOrder: 100,
		},
	}

	for _, prod := range products {
		if prod.CategoryID == 0 {
			stdLog.Printf("Skip product %s: category_id missing", prod.Slug)
			continue
		}
		var existing models.Product
		if err := models.DB.Where("slug = ?", prod.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", prod.Slug)
			}
		} else {
			existing.Name = prod.Name
			existing.Description = prod.Description
			existing.PriceAmount = prod.PriceAmount
			existing.DiscountPrice = prod.DiscountPrice
			existing.Stock = prod.Stock
			existing.CategoryID = prod.CategoryID
			existing.Images = prod.Images
			existing.IsActive = prod.IsActive
			existing.SortOrder = prod.SortOrder
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Updated product: %s", prod.Slug)
			}
		}
	}

	// 为 T 恤准备规格库存（颜色 x 尺码）
	variantPlans := []struct {
		ProductSlug string
		SKU         string
		Name        string
		Price       *models.Money
		Stock       int
		SortOrder   int
	}{
		{ProductSlug: "ao-thun-cotton", SKU: "TS-WHITE-M", Name: "Trắng / M", Stock: 30, SortOrder: 400},
		{ProductSlug: "ao-thun-cotton", SKU: "TS-WHITE-L", Name: "Trắng / L", Stock: 25, SortOrder: 300},
		{ProductSlug: "ao-thun-cotton", SKU: "TS-BLACK-M", Name: "Đen / M", Price: vndPtr(210000), Stock: 20, SortOrder: 200},
		{ProductSlug: "ao-thun-cotton", SKU: "TS-BLACK-L", Name: "Đen / L", Price: vndPtr(210000), Stock: 0, SortOrder: 100},
	}

	for _, plan := range variantPlans {
		var product models.Product
		if err := models.DB.Where("slug = ?", plan.ProductSlug).First(&product).Error; err != nil {
			stdLog.Printf("Skip variant seed %s: product not found", plan.SKU)
			continue
		}

		var existing models.ProductVariant
		if err := models.DB.Where("product_id = ? AND sku = ?", product.ID, plan.SKU).First(&existing).Error; err != nil {
			variant := models.ProductVariant{
				ProductID:   product.ID,
				SKU:         plan.SKU,
				Name:        plan.Name,
				PriceAmount: plan.Price,
				Stock:       plan.Stock,
				IsActive:    true,
				SortOrder:   plan.SortOrder,
			}
			if err := models.DB.Create(&variant).Error; err != nil {
				stdLog.Printf("Failed to create variant %s: %v", plan.SKU, err)
			} else {
				stdLog.Printf("Created variant: %s", plan.SKU)
			}
			continue
		}

		existing.Name = plan.Name
		existing.PriceAmount = plan.Price
		existing.Stock = plan.Stock
		existing.SortOrder = plan.SortOrder
		existing.IsActive = true
		if err := models.DB.Save(&existing).Error; err != nil {
			stdLog.Printf("Failed to update variant %s: %v", plan.SKU, err)
		} else {
			stdLog.Printf("Updated variant: %s", plan.SKU)
		}
	}

	// 同步有规格商品的总库存
	var shirt models.Product
	if err := models.DB.Where("slug = ?", "ao-thun-cotton").First(&shirt).Error; err == nil {
		var total int64
		models.DB.Model(&models.ProductVariant{}).
			Where("product_id = ? AND is_active = ?", shirt.ID, true).
			Select("COALESCE(SUM(stock), 0)").Scan(&total)
		if err := models.DB.Model(&shirt).Update("stock", total).Error; err != nil {
			stdLog.Printf("Failed to sync stock for %s: %v", shirt.Slug, err)
		}
	}

	// 初始化默认演示用户并打印可用的访问令牌
	demoEmail := os.Getenv("VS_DEFAULT_USER_EMAIL")
	demoPass := os.Getenv("VS_DEFAULT_USER_PASSWORD")
	if err := models.EnsureDefaultUser(demoEmail, demoPass); err != nil {
		stdLog.Printf("Failed to ensure default user: %v", err)
	}
	if demoEmail == "" {
		demoEmail = "demo@example.com"
	}
	userRepo := repository.NewUserRepository(models.DB)
	if demoUser, err := userRepo.GetByEmail(demoEmail); err == nil && demoUser != nil {
		token, err := service.GenerateUserToken(cfg.UserJWT.SecretKey, demoUser, cfg.UserJWT.ExpireHours)
		if err != nil {
			stdLog.Printf("Failed to generate demo token: %v", err)
		} else {
			fmt.Printf("\nDemo user token (%s):\n%s\n", demoEmail, token)
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Categories")
	fmt.Println("- 7 Products (VND pricing, 1 with variants)")
	fmt.Println("- 4 Variants (color x size)")
	fmt.Println("- 1 Demo user")
}
