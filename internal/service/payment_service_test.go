package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/vnshop-next/internal/constants"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const testGatewaySecret = "test-hash-secret"

func setupPaymentServiceTest(t *testing.T) (*PaymentService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	svc := NewPaymentService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewProductVariantRepository(db),
		repository.NewCartRepository(db),
		nil,
		newTestPaymentGateway(t),
	)
	return svc, db
}

// signCallbackValues 按网关规则对回调参数补签名
func signCallbackValues(values url.Values, secret string) {
	keys := make([]string, 0, len(values))
	for key := range values {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		if values.Get(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(url.QueryEscape(values.Get(key)))
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(b.String()))
	values.Set("vnp_SecureHash", hex.EncodeToString(mac.Sum(nil)))
}

func gatewayCallback(orderNo string, amountMinor int64, responseCode, txnStatus string) url.Values {
	values := url.Values{}
	values.Set("vnp_TmnCode", "TESTTMN1")
	values.Set("vnp_TxnRef", orderNo)
	values.Set("vnp_Amount", strconv.FormatInt(amountMinor, 10))
	values.Set("vnp_ResponseCode", responseCode)
	values.Set("vnp_TransactionStatus", txnStatus)
	values.Set("vnp_TransactionNo", "14604832")
	values.Set("vnp_BankCode", "NCB")
	values.Set("vnp_PayDate", time.Now().Format("20060102150405"))
	signCallbackValues(values, testGatewaySecret)
	return values
}

// createBankOrder 准备一笔等待支付的银行转账订单（库存已预占）
func createBankOrder(t *testing.T, db *gorm.DB, userID uint, orderNo string, total int64, quantity int) (*models.Order, *models.Product) {
	t.Helper()
	now := time.Now()
	product := models.Product{
		CategoryID:  1,
		Slug:        "bank-" + orderNo,
		Name:        "Sản phẩm " + orderNo,
		PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(total / int64(quantity))),
		Stock:       10 - quantity,
		Sold:        quantity,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	expiresAt := now.Add(24 * time.Hour)
	order := models.Order{
		OrderNo:         orderNo,
		UserID:          userID,
		Status:          constants.OrderStatusPending,
		PaymentMethod:   constants.PaymentMethodBankTransfer,
		PaymentStatus:   constants.PaymentStatusProcessing,
		Currency:        constants.SiteCurrencyDefault,
		TotalAmount:     models.NewMoneyFromDecimal(decimal.NewFromInt(total)),
		ShippingName:    "Le Van C",
		ShippingPhone:   "0987654321",
		ShippingAddress: "78 Trần Hưng Đạo, Hoàn Kiếm, Hà Nội",
		ExpiresAt:       &expiresAt,
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

func TestHandleGatewayReturnSuccess(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	order, _ := createBankOrder(t, db, 41, "VN20260831020101111111", 1990000, 1)
	cartItem := models.CartItem{UserID: 41, ProductID: order.Items[0].ProductID, Quantity: 1}
	if err := db.Create(&cartItem).Error; err != nil {
		t.Fatalf("create cart item failed: %v", err)
	}

	result, err := svc.HandleGatewayReturn(gatewayCallback(order.OrderNo, 199000000, "00", "00"))
	if err != nil {
		t.Fatalf("handle callback failed: %v", err)
	}
	if !result.Succeeded || result.Replayed {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Order.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("unexpected payment status: %s", result.Order.PaymentStatus)
	}
	if result.Order.Status != constants.OrderStatusConfirmed {
		t.Fatalf("unexpected order status: %s", result.Order.Status)
	}
	if result.Order.PaidAt == nil {
		t.Fatalf("expected paid_at to be set")
	}

	var cartCount int64
	db.Model(&models.CartItem{}).Where("user_id = ?", 41).Count(&cartCount)
	if cartCount != 0 {
		t.Fatalf("expected cart cleared on success, got %d items", cartCount)
	}
}

func TestHandleGatewayReturnFailureReleasesStock(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	order, product := createBankOrder(t, db, 42, "VN20260831020101222222", 900000, 2)

	result, err := svc.HandleGatewayReturn(gatewayCallback(order.OrderNo, 90000000, "24", "02"))
	if err != nil {
		t.Fatalf("handle callback failed: %v", err)
	}
	if result.Succeeded {
		t.Fatalf("expected failed payment")
	}
	if result.Order.PaymentStatus != constants.PaymentStatusFailed {
		t.Fatalf("unexpected payment status: %s", result.Order.PaymentStatus)
	}
	if result.Order.Status != constants.OrderStatusPending {
		t.Fatalf("order status should stay pending, got: %s", result.Order.Status)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.Stock != 10 || reloaded.Sold != 0 {
		t.Fatalf("expected stock released, got stock=%d sold=%d", reloaded.Stock, reloaded.Sold)
	}
}

func TestHandleGatewayReturnIdempotentReplay(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	order, _ := createBankOrder(t, db, 43, "VN20260831020101333333", 450000, 1)

	callback := gatewayCallback(order.OrderNo, 45000000, "00", "00")
	if _, err := svc.HandleGatewayReturn(callback); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}

	var afterFirst models.Order
	if err := db.First(&afterFirst, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}

	result, err := svc.HandleGatewayReturn(callback)
	if err != nil {
		t.Fatalf("replay callback failed: %v", err)
	}
	if !result.Replayed {
		t.Fatalf("expected replay to be absorbed")
	}

	var afterSecond models.Order
	if err := db.First(&afterSecond, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if !afterSecond.PaidAt.Equal(*afterFirst.PaidAt) {
		t.Fatalf("replay must not move paid_at: %v vs %v", afterSecond.PaidAt, afterFirst.PaidAt)
	}
}

func TestHandleGatewayReturnFailureAfterPaid(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	order, product := createBankOrder(t, db, 44, "VN20260831020101444444", 650000, 1)

	if _, err := svc.HandleGatewayReturn(gatewayCallback(order.OrderNo, 65000000, "00", "00")); err != nil {
		t.Fatalf("success callback failed: %v", err)
	}
	if _, err := svc.HandleGatewayReturn(gatewayCallback(order.OrderNo, 65000000, "24", "02")); !errors.Is(err, ErrPaymentAlreadySettled) {
		t.Fatalf("expected already settled, got: %v", err)
	}

	// 已落账的支付状态不回退，库存不归还
	var reloadedOrder models.Order
	if err := db.First(&reloadedOrder, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloadedOrder.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("paid status must not regress, got: %s", reloadedOrder.PaymentStatus)
	}
	var reloadedProduct models.Product
	if err := db.First(&reloadedProduct, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloadedProduct.Sold != 1 {
		t.Fatalf("expected stock kept, got sold=%d", reloadedProduct.Sold)
	}
}

func TestHandleGatewayReturnAmountMismatch(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	order, _ := createBankOrder(t, db, 45, "VN20260831020101555555", 280000, 1)

	_, err := svc.HandleGatewayReturn(gatewayCallback(order.OrderNo, 1000, "00", "00"))
	if !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("expected amount mismatch, got: %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.PaymentStatus != constants.PaymentStatusProcessing {
		t.Fatalf("mismatched callback must not settle order, got: %s", reloaded.PaymentStatus)
	}
}

func TestHandleGatewayReturnUnknownOrder(t *testing.T) {
	svc, _ := setupPaymentServiceTest(t)
	_, err := svc.HandleGatewayReturn(gatewayCallback("VN20260831029999999999", 100000, "00", "00"))
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order not found, got: %v", err)
	}
}

func TestHandleGatewayReturnTamperedSignature(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	order, _ := createBankOrder(t, db, 46, "VN20260831020101666666", 280000, 1)

	callback := gatewayCallback(order.OrderNo, 28000000, "00", "00")
	callback.Set("vnp_Amount", "1")
	if _, err := svc.HandleGatewayReturn(callback); !errors.Is(err, ErrPaymentSignatureInvalid) {
		t.Fatalf("expected signature invalid, got: %v", err)
	}

	var reloaded models.Order
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.PaymentStatus != constants.PaymentStatusProcessing {
		t.Fatalf("tampered callback must not settle order, got: %s", reloaded.PaymentStatus)
	}
}

func TestHandleGatewayReturnRejectsCODOrder(t *testing.T) {
	svc, db := setupPaymentServiceTest(t)
	order, _ := createBankOrder(t, db, 47, "VN20260831020101777777", 190000, 1)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"payment_method": constants.PaymentMethodCOD,
			"payment_status": constants.PaymentStatusPending,
		}).Error; err != nil {
		t.Fatalf("update order failed: %v", err)
	}

	if _, err := svc.HandleGatewayReturn(gatewayCallback(order.OrderNo, 19000000, "00", "00")); !errors.Is(err, ErrPaymentOrderMismatch) {
		t.Fatalf("expected order mismatch, got: %v", err)
	}
}

func TestHandleGatewayReturnWithoutGateway(t *testing.T) {
	svc, _ := setupPaymentServiceTest(t)
	svc.gateway = nil
	if _, err := svc.HandleGatewayReturn(url.Values{}); !errors.Is(err, ErrPaymentGatewayDisabled) {
		t.Fatalf("expected gateway disabled, got: %v", err)
	}
}
