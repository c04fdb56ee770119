package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
)

// 支付状态常量
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusPaid       = "paid"
	PaymentStatusFailed     = "failed"
	PaymentStatusExpired    = "expired"
	PaymentStatusCanceled   = "canceled"
)

// 支付方式常量
const (
	PaymentMethodCOD          = "cod"
	PaymentMethodBankTransfer = "bank_transfer"
)

// VNPay 回调应答码常量
const (
	VNPayRespCodeOK            = "00"
	VNPayRespCodeNotFound      = "01"
	VNPayRespCodeConfirmed     = "02"
	VNPayRespCodeAmountInvalid = "04"
	VNPayRespCodeBadSignature  = "97"
	VNPayRespCodeUnknown       = "99"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 币种常量
const (
	SiteCurrencyDefault = "VND"
)

// 队列常量
const (
	QueueDefault               = "default"
	TaskOrderTimeoutCancel     = "order:timeout_cancel"
	TaskOrderConfirmationEmail = "order:confirmation_email"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "vs"
)
