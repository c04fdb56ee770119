package vnpay

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := New(Config{
		TmnCode:    "TESTTMN1",
		HashSecret: "test-secret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://shop.example.com/api/v1/payment/vnpay/return",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return gw
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	cfg := Config{TmnCode: "X", HashSecret: "Y", PayURL: "https://p", ReturnURL: "https://r"}
	if err := ValidateConfig(&cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	missing := cfg
	missing.HashSecret = ""
	if err := ValidateConfig(&missing); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestBuildPaymentURL(t *testing.T) {
	gw := newTestGateway(t)
	createTime := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	raw, err := gw.BuildPaymentURL(PaymentRequest{
		OrderNo:     "VN20260315103000123456",
		AmountMinor: 15000000,
		OrderInfo:   "Thanh toan don hang VN20260315103000123456",
		ClientIP:    "203.0.113.7",
		CreateTime:  createTime,
	})
	if err != nil {
		t.Fatalf("BuildPaymentURL: %v", err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	query := parsed.Query()
	if got := query.Get("vnp_Version"); got != Version {
		t.Fatalf("vnp_Version = %q, want %q", got, Version)
	}
	if got := query.Get("vnp_Amount"); got != "15000000" {
		t.Fatalf("vnp_Amount = %q", got)
	}
	if got := query.Get("vnp_TxnRef"); got != "VN20260315103000123456" {
		t.Fatalf("vnp_TxnRef = %q", got)
	}
	if got := query.Get("vnp_CreateDate"); got != "20260315103000" {
		t.Fatalf("vnp_CreateDate = %q", got)
	}
	if query.Get("vnp_SecureHash") == "" {
		t.Fatalf("missing vnp_SecureHash")
	}

	// 跳转参数必须能通过回调验签逻辑
	result, err := gw.VerifyCallback(query)
	if err != nil {
		t.Fatalf("VerifyCallback on own params: %v", err)
	}
	if result.OrderNo != "VN20260315103000123456" {
		t.Fatalf("OrderNo = %q", result.OrderNo)
	}
	if result.AmountMinor != 15000000 {
		t.Fatalf("AmountMinor = %d", result.AmountMinor)
	}
}

func TestBuildPaymentURLRejectsBadRequest(t *testing.T) {
	gw := newTestGateway(t)
	if _, err := gw.BuildPaymentURL(PaymentRequest{AmountMinor: 100}); !errors.Is(err, ErrRequestInvalid) {
		t.Fatalf("expected ErrRequestInvalid for empty order no, got %v", err)
	}
	if _, err := gw.BuildPaymentURL(PaymentRequest{OrderNo: "VN1", AmountMinor: 0}); !errors.Is(err, ErrRequestInvalid) {
		t.Fatalf("expected ErrRequestInvalid for zero amount, got %v", err)
	}
}

func signedCallback(gw *Gateway, overrides map[string]string) url.Values {
	params := map[string]string{
		"vnp_TmnCode":           "TESTTMN1",
		"vnp_TxnRef":            "VN20260315103000123456",
		"vnp_Amount":            "15000000",
		"vnp_ResponseCode":      "00",
		"vnp_TransactionStatus": "00",
		"vnp_TransactionNo":     "14226112",
		"vnp_BankCode":          "NCB",
		"vnp_PayDate":           "20260315103512",
	}
	for key, value := range overrides {
		if value == "" {
			delete(params, key)
			continue
		}
		params[key] = value
	}

	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set("vnp_SecureHash", gw.sign(buildSignContent(params)))
	return values
}

func TestVerifyCallbackSuccess(t *testing.T) {
	gw := newTestGateway(t)
	result, err := gw.VerifyCallback(signedCallback(gw, nil))
	if err != nil {
		t.Fatalf("VerifyCallback: %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("expected succeeded result")
	}
	if result.TransactionNo != "14226112" {
		t.Fatalf("TransactionNo = %q", result.TransactionNo)
	}
	if result.BankCode != "NCB" {
		t.Fatalf("BankCode = %q", result.BankCode)
	}
}

func TestVerifyCallbackFailureCodes(t *testing.T) {
	gw := newTestGateway(t)

	// 响应码非 00 视为失败
	result, err := gw.VerifyCallback(signedCallback(gw, map[string]string{"vnp_ResponseCode": "24"}))
	if err != nil {
		t.Fatalf("VerifyCallback: %v", err)
	}
	if result.Succeeded {
		t.Fatalf("expected failed result for response code 24")
	}

	// 交易状态非 00 同样视为失败
	result, err = gw.VerifyCallback(signedCallback(gw, map[string]string{"vnp_TransactionStatus": "02"}))
	if err != nil {
		t.Fatalf("VerifyCallback: %v", err)
	}
	if result.Succeeded {
		t.Fatalf("expected failed result for transaction status 02")
	}
}

func TestVerifyCallbackTamperedParams(t *testing.T) {
	gw := newTestGateway(t)
	values := signedCallback(gw, nil)
	values.Set("vnp_Amount", "99999999")
	if _, err := gw.VerifyCallback(values); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyCallbackMissingHash(t *testing.T) {
	gw := newTestGateway(t)
	values := signedCallback(gw, nil)
	values.Del("vnp_SecureHash")
	if _, err := gw.VerifyCallback(values); !errors.Is(err, ErrCallbackInvalid) {
		t.Fatalf("expected ErrCallbackInvalid, got %v", err)
	}
}

func TestVerifyCallbackWrongSecret(t *testing.T) {
	gw := newTestGateway(t)
	other, err := New(Config{
		TmnCode:    "TESTTMN1",
		HashSecret: "another-secret",
		PayURL:     gw.cfg.PayURL,
		ReturnURL:  gw.cfg.ReturnURL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := other.VerifyCallback(signedCallback(gw, nil)); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid across secrets, got %v", err)
	}
}

func TestVerifyCallbackIgnoresHashType(t *testing.T) {
	gw := newTestGateway(t)
	values := signedCallback(gw, nil)
	values.Set("vnp_SecureHashType", "HMACSHA512")
	result, err := gw.VerifyCallback(values)
	if err != nil {
		t.Fatalf("VerifyCallback: %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("expected succeeded result")
	}
}

func TestBuildSignContentSkipsEmptyValues(t *testing.T) {
	content := buildSignContent(map[string]string{
		"vnp_B": "two words",
		"vnp_A": "1",
		"vnp_C": "",
	})
	if content != "vnp_A=1&vnp_B=two+words" {
		t.Fatalf("sign content = %q", content)
	}
	if strings.Contains(content, "vnp_C") {
		t.Fatalf("empty value must be excluded")
	}
}
