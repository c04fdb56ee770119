package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vnshop-next/internal/constants"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewProductVariantRepository(db),
		nil,
		24,
	)
	return svc, db
}

// createReservedOrder 准备一笔已预占库存的订单：商品 stock 已扣、sold 已加
func createReservedOrder(t *testing.T, db *gorm.DB, userID uint, orderNo, status, paymentStatus string, quantity int) (*models.Order, *models.Product) {
	t.Helper()
	now := time.Now()
	product := models.Product{
		CategoryID:  1,
		Slug:        "reserved-" + orderNo,
		Name:        "Sản phẩm " + orderNo,
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(500000)),
		Stock:       10 - quantity,
		Sold:        quantity,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	order := models.Order{
		OrderNo:         orderNo,
		UserID:          userID,
		Status:          status,
		PaymentMethod:   constants.PaymentMethodBankTransfer,
		PaymentStatus:   paymentStatus,
		Currency:        constants.SiteCurrencyDefault,
		TotalAmount:     models.NewMoneyFromDecimal(decimal.NewFromInt(int64(quantity) * 500000)),
		ShippingName:    "Tran Thi B",
		ShippingPhone:   "0912345678",
		ShippingAddress: "45 Nguyễn Huệ, Quận 1, TP.HCM",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	item := models.OrderItem{
		OrderID:     order.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.PriceAmount,
		Quantity:    quantity,
		TotalPrice:  order.TotalAmount,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create order item failed: %v", err)
	}
	order.Items = []models.OrderItem{item}
	return &order, &product
}

func TestIsTransitionAllowed(t *testing.T) {
	cases := []struct {
		current string
		target  string
		want    bool
	}{
		{constants.OrderStatusPending, constants.OrderStatusConfirmed, true},
		{constants.OrderStatusPending, constants.OrderStatusCanceled, true},
		{constants.OrderStatusPending, constants.OrderStatusShipped, false},
		{constants.OrderStatusConfirmed, constants.OrderStatusProcessing, true},
		{constants.OrderStatusConfirmed, constants.OrderStatusCanceled, true},
		{constants.OrderStatusConfirmed, constants.OrderStatusDelivered, false},
		{constants.OrderStatusProcessing, constants.OrderStatusShipped, true},
		{constants.OrderStatusProcessing, constants.OrderStatusCanceled, true},
		{constants.OrderStatusProcessing, constants.OrderStatusDelivered, false},
		{constants.OrderStatusShipped, constants.OrderStatusDelivered, true},
		{constants.OrderStatusShipped, constants.OrderStatusCanceled, false},
		{constants.OrderStatusDelivered, constants.OrderStatusShipped, false},
		{constants.OrderStatusCanceled, constants.OrderStatusPending, false},
		{constants.OrderStatusShipped, constants.OrderStatusShipped, true},
	}
	for _, tc := range cases {
		if got := isTransitionAllowed(tc.current, tc.target); got != tc.want {
			t.Fatalf("transition %s -> %s: expected %v, got %v", tc.current, tc.target, tc.want, got)
		}
	}
}

func TestCancelOrderByUserReleasesStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, product := createReservedOrder(t, db, 21, "VN20260831010101111111", constants.OrderStatusPending, constants.PaymentStatusProcessing, 2)

	canceled, err := svc.CancelOrder(order.ID, 21)
	if err != nil {
		t.Fatalf("cancel order failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled {
		t.Fatalf("unexpected status: %s", canceled.Status)
	}
	if canceled.PaymentStatus != constants.PaymentStatusCanceled {
		t.Fatalf("unexpected payment status: %s", canceled.PaymentStatus)
	}
	if canceled.CanceledAt == nil {
		t.Fatalf("expected canceled_at to be set")
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 10 || reloaded.Sold != 0 {
		t.Fatalf("expected stock released, got stock=%d sold=%d", reloaded.Stock, reloaded.Sold)
	}
}

func TestCancelOrderRejectsWrongUser(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, _ := createReservedOrder(t, db, 22, "VN20260831010101222222", constants.OrderStatusPending, constants.PaymentStatusProcessing, 1)

	if _, err := svc.CancelOrder(order.ID, 99); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order not found, got: %v", err)
	}
}

func TestCancelOrderRejectsNonPending(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, _ := createReservedOrder(t, db, 23, "VN20260831010101333333", constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 1)

	if _, err := svc.CancelOrder(order.ID, 23); !errors.Is(err, ErrOrderCancelNotAllowed) {
		t.Fatalf("expected cancel not allowed, got: %v", err)
	}
}

func TestUpdateOrderStatusHappyPath(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, _ := createReservedOrder(t, db, 24, "VN20260831010101444444", constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 1)

	updated, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusProcessing)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if updated.Status != constants.OrderStatusProcessing {
		t.Fatalf("unexpected status: %s", updated.Status)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusProcessing {
		t.Fatalf("status not persisted: %s", reloaded.Status)
	}
}

func TestUpdateOrderStatusRejectsIllegalTransition(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, _ := createReservedOrder(t, db, 25, "VN20260831010101555555", constants.OrderStatusPending, constants.PaymentStatusProcessing, 1)

	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusShipped); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected status invalid, got: %v", err)
	}
}

func TestUpdateOrderStatusSameStatusNoop(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, _ := createReservedOrder(t, db, 26, "VN20260831010101666666", constants.OrderStatusShipped, constants.PaymentStatusPaid, 1)

	updated, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusShipped)
	if err != nil {
		t.Fatalf("same-status update failed: %v", err)
	}
	if updated.Status != constants.OrderStatusShipped {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
}

func TestAdminCancelUnpaidReleasesStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, product := createReservedOrder(t, db, 27, "VN20260831010101777777", constants.OrderStatusPending, constants.PaymentStatusProcessing, 3)

	updated, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusCanceled)
	if err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
	if updated.PaymentStatus != constants.PaymentStatusCanceled {
		t.Fatalf("unexpected payment status: %s", updated.PaymentStatus)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 10 || reloaded.Sold != 0 {
		t.Fatalf("expected stock released, got stock=%d sold=%d", reloaded.Stock, reloaded.Sold)
	}
}

func TestAdminCancelPaidKeepsStockAndPaymentStatus(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, product := createReservedOrder(t, db, 28, "VN20260831010101888888", constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 2)

	updated, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusCanceled)
	if err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
	if updated.Status != constants.OrderStatusCanceled {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
	// 已支付订单退款走线下流程，支付状态与库存不回滚
	if updated.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("expected payment status kept, got: %s", updated.PaymentStatus)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 8 || reloaded.Sold != 2 {
		t.Fatalf("expected stock kept, got stock=%d sold=%d", reloaded.Stock, reloaded.Sold)
	}
}

func TestAdminCancelProcessingOrder(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, product := createReservedOrder(t, db, 41, "VN20260831010103111111", constants.OrderStatusProcessing, constants.PaymentStatusPaid, 2)

	updated, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusCanceled)
	if err != nil {
		t.Fatalf("cancel processing order failed: %v", err)
	}
	if updated.Status != constants.OrderStatusCanceled {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
	if updated.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("expected payment status kept, got: %s", updated.PaymentStatus)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 8 || reloaded.Sold != 2 {
		t.Fatalf("expected stock kept, got stock=%d sold=%d", reloaded.Stock, reloaded.Sold)
	}
}

// 支付失败回调已归还库存，随后的取消不得再次补偿
func TestCancelOrderAfterFailedPaymentKeepsStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, product := createReservedOrder(t, db, 42, "VN20260831010103222222", constants.OrderStatusPending, constants.PaymentStatusFailed, 2)
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).
		Updates(map[string]interface{}{"stock": 10, "sold": 5}).Error; err != nil {
		t.Fatalf("simulate released stock failed: %v", err)
	}

	canceled, err := svc.CancelOrder(order.ID, 42)
	if err != nil {
		t.Fatalf("cancel order failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled {
		t.Fatalf("unexpected status: %s", canceled.Status)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 10 || reloaded.Sold != 5 {
		t.Fatalf("stock must not be released twice, got stock=%d sold=%d", reloaded.Stock, reloaded.Sold)
	}
}

func TestAdminCancelFailedPaymentKeepsStock(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, product := createReservedOrder(t, db, 43, "VN20260831010103333333", constants.OrderStatusPending, constants.PaymentStatusFailed, 3)
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).
		Updates(map[string]interface{}{"stock": 10, "sold": 4}).Error; err != nil {
		t.Fatalf("simulate released stock failed: %v", err)
	}

	updated, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusCanceled)
	if err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
	if updated.PaymentStatus != constants.PaymentStatusCanceled {
		t.Fatalf("unexpected payment status: %s", updated.PaymentStatus)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 10 || reloaded.Sold != 4 {
		t.Fatalf("stock must not be released twice, got stock=%d sold=%d", reloaded.Stock, reloaded.Sold)
	}
}

func TestCancelExpiredOrder(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, product := createReservedOrder(t, db, 29, "VN20260831010101999999", constants.OrderStatusPending, constants.PaymentStatusProcessing, 2)
	past := time.Now().Add(-time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("set expiry failed: %v", err)
	}

	result, err := svc.CancelExpiredOrder(order.ID)
	if err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if result.Status != constants.OrderStatusCanceled {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.PaymentStatus != constants.PaymentStatusExpired {
		t.Fatalf("unexpected payment status: %s", result.PaymentStatus)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 10 || reloaded.Sold != 0 {
		t.Fatalf("expected stock released, got stock=%d sold=%d", reloaded.Stock, reloaded.Sold)
	}
}

func TestCancelExpiredOrderSkipsUnexpired(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, _ := createReservedOrder(t, db, 30, "VN20260831010102111111", constants.OrderStatusPending, constants.PaymentStatusProcessing, 1)
	future := time.Now().Add(2 * time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("expires_at", future).Error; err != nil {
		t.Fatalf("set expiry failed: %v", err)
	}

	result, err := svc.CancelExpiredOrder(order.ID)
	if err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if result.Status != constants.OrderStatusPending {
		t.Fatalf("unexpired order should stay pending, got: %s", result.Status)
	}
}

func TestCancelExpiredOrderSkipsPaid(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, _ := createReservedOrder(t, db, 31, "VN20260831010102222222", constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 1)

	result, err := svc.CancelExpiredOrder(order.ID)
	if err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if result.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("paid order must not be touched, got: %s", result.PaymentStatus)
	}
}

func TestAutoCancelStaleOrders(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	staleA, _ := createReservedOrder(t, db, 32, "VN20260831010102333333", constants.OrderStatusPending, constants.PaymentStatusProcessing, 1)
	staleB, _ := createReservedOrder(t, db, 33, "VN20260831010102444444", constants.OrderStatusPending, constants.PaymentStatusProcessing, 1)
	fresh, _ := createReservedOrder(t, db, 34, "VN20260831010102555555", constants.OrderStatusPending, constants.PaymentStatusProcessing, 1)

	old := time.Now().Add(-48 * time.Hour)
	for _, id := range []uint{staleA.ID, staleB.ID} {
		if err := db.Model(&models.Order{}).Where("id = ?", id).
			Updates(map[string]interface{}{"created_at": old, "expires_at": old.Add(24 * time.Hour)}).Error; err != nil {
			t.Fatalf("age order failed: %v", err)
		}
	}

	canceled, err := svc.AutoCancelStaleOrders(100)
	if err != nil {
		t.Fatalf("auto cancel failed: %v", err)
	}
	if canceled != 2 {
		t.Fatalf("expected 2 canceled, got %d", canceled)
	}

	var reloadedFresh models.Order
	if err := db.First(&reloadedFresh, fresh.ID).Error; err != nil {
		t.Fatalf("reload fresh order failed: %v", err)
	}
	if reloadedFresh.PaymentStatus != constants.PaymentStatusProcessing {
		t.Fatalf("fresh order must stay processing, got: %s", reloadedFresh.PaymentStatus)
	}
}

func TestGetOrderByUserScoped(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	order, _ := createReservedOrder(t, db, 35, "VN20260831010102666666", constants.OrderStatusPending, constants.PaymentStatusProcessing, 1)

	got, err := svc.GetOrderByUser(order.ID, 35)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if got.OrderNo != order.OrderNo {
		t.Fatalf("unexpected order: %s", got.OrderNo)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected items preloaded, got %d", len(got.Items))
	}

	if _, err := svc.GetOrderByUser(order.ID, 36); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found for other user, got: %v", err)
	}
}
