package vnpay

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
	"time"
)

const (
	Version        = "2.1.0"
	CommandPay     = "pay"
	LocaleVN       = "vn"
	CurrencyVND    = "VND"
	OrderTypeOther = "other"

	// RespCodeSuccess 网关返回码：成功
	RespCodeSuccess = "00"

	timeLayout = "20060102150405"
)

var (
	ErrConfigInvalid   = errors.New("vnpay config invalid")
	ErrRequestInvalid  = errors.New("vnpay request invalid")
	ErrCallbackInvalid = errors.New("vnpay callback invalid")
	// ErrSignatureInvalid 回调验签失败
	ErrSignatureInvalid = errors.New("vnpay signature invalid")
)

// Config VNPay 网关配置
type Config struct {
	TmnCode    string `json:"tmn_code"`    // 商户号
	HashSecret string `json:"hash_secret"` // HMAC 签名密钥
	PayURL     string `json:"pay_url"`     // 收银台地址
	ReturnURL  string `json:"return_url"`  // 支付完成回跳地址
}

// ValidateConfig 校验网关配置完整性
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.TmnCode) == "" {
		return fmt.Errorf("%w: tmn_code is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.HashSecret) == "" {
		return fmt.Errorf("%w: hash_secret is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.PayURL) == "" {
		return fmt.Errorf("%w: pay_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.ReturnURL) == "" {
		return fmt.Errorf("%w: return_url is required", ErrConfigInvalid)
	}
	return nil
}

// Gateway VNPay 网关客户端
type Gateway struct {
	cfg Config
}

// New 创建网关客户端
func New(cfg Config) (*Gateway, error) {
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &Gateway{cfg: cfg}, nil
}

// PaymentRequest 支付跳转请求
type PaymentRequest struct {
	OrderNo     string    // 订单号（vnp_TxnRef）
	AmountMinor int64     // 金额（最小货币单位，已乘 100）
	OrderInfo   string    // 订单描述
	ClientIP    string    // 下单客户端 IP
	CreateTime  time.Time // 下单时间
	Locale      string    // 语言，默认 vn
}

// BuildPaymentURL 构造带签名的收银台跳转地址
func (g *Gateway) BuildPaymentURL(req PaymentRequest) (string, error) {
	orderNo := strings.TrimSpace(req.OrderNo)
	if orderNo == "" {
		return "", fmt.Errorf("%w: order no is required", ErrRequestInvalid)
	}
	if req.AmountMinor <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrRequestInvalid)
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = LocaleVN
	}
	clientIP := strings.TrimSpace(req.ClientIP)
	if clientIP == "" {
		clientIP = "127.0.0.1"
	}
	createTime := req.CreateTime
	if createTime.IsZero() {
		createTime = time.Now()
	}
	orderInfo := strings.TrimSpace(req.OrderInfo)
	if orderInfo == "" {
		orderInfo = "Thanh toan don hang " + orderNo
	}

	params := map[string]string{
		"vnp_Version":    Version,
		"vnp_Command":    CommandPay,
		"vnp_TmnCode":    g.cfg.TmnCode,
		"vnp_Locale":     locale,
		"vnp_CurrCode":   CurrencyVND,
		"vnp_TxnRef":     orderNo,
		"vnp_OrderInfo":  orderInfo,
		"vnp_OrderType":  OrderTypeOther,
		"vnp_Amount":     strconv.FormatInt(req.AmountMinor, 10),
		"vnp_ReturnUrl":  g.cfg.ReturnURL,
		"vnp_IpAddr":     clientIP,
		"vnp_CreateDate": createTime.Format(timeLayout),
	}

	signContent := buildSignContent(params)
	signature := g.sign(signContent)
	return g.cfg.PayURL + "?" + signContent + "&vnp_SecureHash=" + signature, nil
}

// CallbackResult 回调验签结果
type CallbackResult struct {
	OrderNo           string
	AmountMinor       int64
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	Succeeded         bool
}

// VerifyCallback 校验回调签名并解析关键字段，验签失败不产生任何结果
func (g *Gateway) VerifyCallback(values url.Values) (*CallbackResult, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty params", ErrCallbackInvalid)
	}
	received := strings.TrimSpace(values.Get("vnp_SecureHash"))
	if received == "" {
		return nil, fmt.Errorf("%w: missing secure hash", ErrCallbackInvalid)
	}

	params := make(map[string]string, len(values))
	for key := range values {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		params[key] = values.Get(key)
	}

	expected := g.sign(buildSignContent(params))
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return nil, ErrSignatureInvalid
	}

	orderNo := strings.TrimSpace(params["vnp_TxnRef"])
	if orderNo == "" {
		return nil, fmt.Errorf("%w: missing txn ref", ErrCallbackInvalid)
	}
	amountMinor, err := strconv.ParseInt(strings.TrimSpace(params["vnp_Amount"]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount", ErrCallbackInvalid)
	}

	result := &CallbackResult{
		OrderNo:           orderNo,
		AmountMinor:       amountMinor,
		ResponseCode:      strings.TrimSpace(params["vnp_ResponseCode"]),
		TransactionStatus: strings.TrimSpace(params["vnp_TransactionStatus"]),
		TransactionNo:     strings.TrimSpace(params["vnp_TransactionNo"]),
		BankCode:          strings.TrimSpace(params["vnp_BankCode"]),
	}
	result.Succeeded = result.ResponseCode == RespCodeSuccess && result.TransactionStatus == RespCodeSuccess
	return result, nil
}

// buildSignContent 按键名升序拼接 key=urlencode(value)，空值不参与签名
func buildSignContent(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == "" {
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
		b.WriteString(url.QueryEscape(params[key]))
	}
	return b.String()
}

// sign HMAC-SHA512 十六进制签名
func (g *Gateway) sign(content string) string {
	mac := hmac.New(sha512.New, []byte(g.cfg.HashSecret))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}
