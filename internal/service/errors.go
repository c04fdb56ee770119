package service

import "errors"

// 订单相关错误
var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderFetchFailed      = errors.New("order fetch failed")
	ErrOrderCreateFailed     = errors.New("order create failed")
	ErrOrderUpdateFailed     = errors.New("order update failed")
	ErrOrderStatusInvalid    = errors.New("order status transition not allowed")
	ErrOrderCancelNotAllowed = errors.New("order cancel not allowed")
	ErrOrderPendingExists    = errors.New("user already has a pending order")
	ErrOrderTotalMismatch    = errors.New("order total mismatch")
	ErrInvalidOrderItem      = errors.New("invalid order item")
)

// 购物车相关错误
var (
	ErrCartEmpty           = errors.New("cart is empty")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrCartQuantityInvalid = errors.New("cart quantity invalid")
)

// 商品与库存相关错误
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductInactive     = errors.New("product not available")
	ErrVariantNotFound     = errors.New("product variant not found")
	ErrVariantInactive     = errors.New("product variant not available")
	ErrStockInsufficient   = errors.New("insufficient stock")
	ErrStockReleaseFailed  = errors.New("stock release failed")
)

// 支付相关错误
var (
	ErrPaymentMethodInvalid    = errors.New("payment method invalid")
	ErrPaymentSignatureInvalid = errors.New("payment signature invalid")
	ErrPaymentAmountMismatch   = errors.New("payment amount mismatch")
	ErrPaymentCurrencyMismatch = errors.New("payment currency mismatch")
	ErrPaymentOrderMismatch    = errors.New("payment order mismatch")
	ErrPaymentUpdateFailed     = errors.New("payment update failed")
	ErrPaymentAlreadySettled   = errors.New("payment already settled")
	ErrPaymentGatewayDisabled  = errors.New("payment gateway disabled")
)

// 基础设施相关错误
var (
	ErrQueueUnavailable          = errors.New("queue unavailable")
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrEmailSendFailed           = errors.New("email send failed")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrUserNotFound              = errors.New("user not found")
)
