package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/vnshop-next/internal/constants"
	"github.com/vnshop-next/internal/logger"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/payment/vnpay"
	"github.com/vnshop-next/internal/queue"
	"github.com/vnshop-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutService 结算服务：购物车快照、金额重算、库存预占与支付分流
type CheckoutService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	variantRepo repository.ProductVariantRepository
	cartRepo    repository.CartRepository
	queueClient *queue.Client
	gateway     *vnpay.Gateway
	expireHours int
}

// NewCheckoutService 创建结算服务
func NewCheckoutService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, variantRepo repository.ProductVariantRepository, cartRepo repository.CartRepository, queueClient *queue.Client, gateway *vnpay.Gateway, expireHours int) *CheckoutService {
	if expireHours <= 0 {
		expireHours = 24
	}
	return &CheckoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		variantRepo: variantRepo,
		cartRepo:    cartRepo,
		queueClient: queueClient,
		gateway:     gateway,
		expireHours: expireHours,
	}
}

// CheckoutInput 结算输入
type CheckoutInput struct {
	UserID          uint
	PaymentMethod   string
	ShippingName    string
	ShippingPhone   string
	ShippingAddress string
	Note            string
	ShippingFee     *models.Money // 运费，缺省为 0
	ClientTotal     *models.Money // 客户端提交的金额，仅用于校验，绝不入账
	ClientIP        string
}

// CheckoutResult 结算结果
type CheckoutResult struct {
	Order      *models.Order `json:"order"`
	PaymentURL string        `json:"payment_url,omitempty"`
}

// Checkout 结算下单：单事务内完成快照、重算、预占与订单落库
func (s *CheckoutService) Checkout(input CheckoutInput) (*CheckoutResult, error) {
	if input.UserID == 0 {
		return nil, ErrUserNotFound
	}
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method != constants.PaymentMethodCOD && method != constants.PaymentMethodBankTransfer {
		return nil, ErrPaymentMethodInvalid
	}
	if method == constants.PaymentMethodBankTransfer && s.gateway == nil {
		return nil, ErrPaymentGatewayDisabled
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return nil, ErrInvalidOrderItem
	}
	shippingFee := decimal.Zero
	if input.ShippingFee != nil {
		if input.ShippingFee.Decimal.IsNegative() {
			return nil, ErrInvalidOrderItem
		}
		shippingFee = input.ShippingFee.Decimal
	}

	pendingCount, err := s.orderRepo.CountActivePendingByUser(input.UserID, []string{
		constants.PaymentStatusPending,
		constants.PaymentStatusProcessing,
	})
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if pendingCount > 0 {
		return nil, ErrOrderPendingExists
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(s.expireHours) * time.Hour)
	paymentStatus := constants.PaymentStatusPending
	if method == constants.PaymentMethodBankTransfer {
		paymentStatus = constants.PaymentStatusProcessing
	}

	order := &models.Order{
		OrderNo:         generateOrderNo(),
		UserID:          input.UserID,
		Status:          constants.OrderStatusPending,
		PaymentMethod:   method,
		PaymentStatus:   paymentStatus,
		Currency:        constants.SiteCurrencyDefault,
		ShippingName:    strings.TrimSpace(input.ShippingName),
		ShippingPhone:   strings.TrimSpace(input.ShippingPhone),
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		Note:            strings.TrimSpace(input.Note),
		ClientIP:        strings.TrimSpace(input.ClientIP),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if method == constants.PaymentMethodBankTransfer {
		order.ExpiresAt = &expiresAt
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		variantRepo := s.variantRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		cartItems, err := cartRepo.ListByUser(input.UserID)
		if err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return ErrCartEmpty
		}

		orderItems := make([]models.OrderItem, 0, len(cartItems))
		total := decimal.Zero
		for i := range cartItems {
			item, lineTotal, err := s.reserveCartItem(productRepo, variantRepo, &cartItems[i])
			if err != nil {
				return err
			}
			orderItems = append(orderItems, *item)
			total = total.Add(lineTotal)
		}

		total = total.Add(shippingFee)

		// 金额以服务端重算为准，客户端金额只做一致性校验
		if input.ClientTotal != nil && input.ClientTotal.Decimal.Round(2).Cmp(total.Round(2)) != 0 {
			return ErrOrderTotalMismatch
		}
		order.TotalAmount = models.NewMoneyFromDecimal(total)
		order.ShippingFee = models.NewMoneyFromDecimal(shippingFee)

		if err := orderRepo.Create(order, orderItems); err != nil {
			return err
		}
		order.Items = orderItems

		// 货到付款无支付回调，下单即清空购物车
		if method == constants.PaymentMethodCOD {
			if err := cartRepo.ClearByUser(input.UserID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch err {
		case ErrCartEmpty, ErrStockInsufficient, ErrOrderTotalMismatch, ErrInvalidOrderItem,
			ErrProductNotFound, ErrProductInactive, ErrVariantNotFound, ErrVariantInactive:
			return nil, err
		}
		logger.Errorw("checkout_transaction_failed",
			"user_id", input.UserID,
			"payment_method", method,
			"error", err,
		)
		return nil, ErrOrderCreateFailed
	}

	result := &CheckoutResult{Order: order}

	if method == constants.PaymentMethodBankTransfer {
		// 支付链接在事务提交后生成，避免外部调用拖长事务
		payURL, err := s.gateway.BuildPaymentURL(vnpay.PaymentRequest{
			OrderNo:     order.OrderNo,
			AmountMinor: order.TotalAmount.MinorUnits(),
			OrderInfo:   fmt.Sprintf("Thanh toan don hang %s", order.OrderNo),
			ClientIP:    order.ClientIP,
			CreateTime:  now,
		})
		if err != nil {
			logger.Errorw("checkout_build_payment_url_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"error", err,
			)
			return nil, ErrPaymentGatewayDisabled
		}
		result.PaymentURL = payURL

		if s.queueClient != nil {
			if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{
				OrderID: order.ID,
			}, time.Until(expiresAt)); err != nil {
				// 兜底清扫会处理漏掉的超时订单，入队失败不阻断下单
				logger.Warnw("checkout_enqueue_timeout_cancel_failed",
					"order_id", order.ID,
					"order_no", order.OrderNo,
					"error", err,
				)
			}
		}
	}

	logger.Infow("checkout_order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", order.UserID,
		"payment_method", method,
		"total_amount", order.TotalAmount.String(),
	)
	return result, nil
}

// reserveCartItem 对单个购物车项加锁校验并预占库存，返回订单项快照与小计
func (s *CheckoutService) reserveCartItem(productRepo repository.ProductRepository, variantRepo repository.ProductVariantRepository, cartItem *models.CartItem) (*models.OrderItem, decimal.Decimal, error) {
	if cartItem.Quantity <= 0 {
		return nil, decimal.Zero, ErrInvalidOrderItem
	}

	// 先锁商品行再锁规格行，保持全局加锁顺序避免死锁
	product, err := productRepo.GetByIDForUpdate(cartItem.ProductID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if product == nil {
		return nil, decimal.Zero, ErrProductNotFound
	}
	if !product.IsActive {
		return nil, decimal.Zero, ErrProductInactive
	}

	var variant *models.ProductVariant
	if cartItem.VariantID != nil && *cartItem.VariantID > 0 {
		variant, err = variantRepo.GetByIDForUpdate(*cartItem.VariantID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if variant == nil || variant.ProductID != product.ID {
			return nil, decimal.Zero, ErrVariantNotFound
		}
		if !variant.IsActive {
			return nil, decimal.Zero, ErrVariantInactive
		}
		if variant.Stock < cartItem.Quantity {
			return nil, decimal.Zero, ErrStockInsufficient
		}
	} else if product.Stock < cartItem.Quantity {
		return nil, decimal.Zero, ErrStockInsufficient
	}

	// 条件扣减是最终裁决，行锁只缩小竞争窗口
	if variant != nil {
		affected, err := variantRepo.ReserveStock(variant.ID, cartItem.Quantity)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if affected == 0 {
			return nil, decimal.Zero, ErrStockInsufficient
		}
	}
	affected, err := productRepo.ReserveStock(product.ID, cartItem.Quantity)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if affected == 0 {
		return nil, decimal.Zero, ErrStockInsufficient
	}

	unitPrice := product.EffectivePrice()
	variantName := ""
	var variantID *uint
	if variant != nil {
		if variant.PriceAmount != nil {
			unitPrice = *variant.PriceAmount
		}
		variantName = variant.Name
		id := variant.ID
		variantID = &id
	}

	lineTotal := unitPrice.Decimal.Mul(decimal.NewFromInt(int64(cartItem.Quantity)))
	image := ""
	if len(product.Images) > 0 {
		image = product.Images[0]
	}
	item := &models.OrderItem{
		ProductID:   product.ID,
		VariantID:   variantID,
		ProductName: product.Name,
		VariantName: variantName,
		Image:       image,
		UnitPrice:   unitPrice,
		Quantity:    cartItem.Quantity,
		TotalPrice:  models.NewMoneyFromDecimal(lineTotal),
	}
	return item, lineTotal, nil
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	randPart := randNumeric(6)
	return fmt.Sprintf("VN%s%s", now, randPart)
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
