package public

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vnshop-next/internal/constants"
	"github.com/vnshop-next/internal/http/response"
	"github.com/vnshop-next/internal/payment/vnpay"
	"github.com/vnshop-next/internal/service"

	"github.com/gin-gonic/gin"
)

// HandleVNPayReturn 处理 VNPay 支付结果回调
// 应答码遵循网关约定：00 已确认，01 订单不存在，02 已处理过，04 金额不符，97 验签失败。
func (h *Handler) HandleVNPayReturn(c *gin.Context) {
	log := requestLog(c)
	params := c.Request.URL.Query()
	log.Infow("payment_callback_received",
		"client_ip", c.ClientIP(),
		"txn_ref", strings.TrimSpace(params.Get("vnp_TxnRef")),
		"response_code", strings.TrimSpace(params.Get("vnp_ResponseCode")),
		"transaction_status", strings.TrimSpace(params.Get("vnp_TransactionStatus")),
		"transaction_no", strings.TrimSpace(params.Get("vnp_TransactionNo")),
	)

	result, err := h.PaymentService.HandleGatewayReturn(params)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentSignatureInvalid), errors.Is(err, vnpay.ErrSignatureInvalid):
			log.Warnw("payment_callback_signature_invalid", "client_ip", c.ClientIP())
			respondCallback(c, constants.VNPayRespCodeBadSignature, "Invalid signature")
		case errors.Is(err, vnpay.ErrCallbackInvalid):
			log.Warnw("payment_callback_params_invalid", "error", err)
			respondCallback(c, constants.VNPayRespCodeBadSignature, "Invalid params")
		case errors.Is(err, service.ErrOrderNotFound):
			respondCallback(c, constants.VNPayRespCodeNotFound, "Order not found")
		case errors.Is(err, service.ErrPaymentAmountMismatch):
			log.Warnw("payment_callback_amount_mismatch", "txn_ref", strings.TrimSpace(params.Get("vnp_TxnRef")))
			respondCallback(c, constants.VNPayRespCodeAmountInvalid, "Invalid amount")
		case errors.Is(err, service.ErrPaymentOrderMismatch), errors.Is(err, service.ErrPaymentAlreadySettled):
			respondCallback(c, constants.VNPayRespCodeConfirmed, "Order already confirmed")
		default:
			log.Errorw("payment_callback_failed", "error", err)
			respondCallback(c, constants.VNPayRespCodeUnknown, "Unknown error")
		}
		return
	}

	log.Infow("payment_callback_processed",
		"order_no", result.Order.OrderNo,
		"succeeded", result.Succeeded,
		"replayed", result.Replayed,
	)
	respondCallback(c, constants.VNPayRespCodeOK, "Confirm Success")
}

// ConfirmPaymentRequest 前端转发的网关参数
type ConfirmPaymentRequest struct {
	Params map[string]string `json:"params" binding:"required"`
}

// ConfirmPayment 前端中转网关结果：验签与对账逻辑同回调入口
func (h *Handler) ConfirmPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "order id invalid", nil)
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	order, err := h.OrderService.GetOrderByUser(uint(orderID), uid)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}

	params := url.Values{}
	for key, value := range req.Params {
		params.Set(key, value)
	}
	// 中转参数必须指向本人订单，签名仍由网关密钥裁决
	if strings.TrimSpace(params.Get("vnp_TxnRef")) != order.OrderNo {
		respondError(c, response.CodeBadRequest, "order reference mismatch", nil)
		return
	}

	result, err := h.PaymentService.HandleGatewayReturn(params)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentSignatureInvalid), errors.Is(err, vnpay.ErrSignatureInvalid), errors.Is(err, vnpay.ErrCallbackInvalid):
			respondError(c, response.CodeBadRequest, "invalid payment response", nil)
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrPaymentAmountMismatch), errors.Is(err, service.ErrPaymentOrderMismatch):
			respondError(c, response.CodeBadRequest, "invalid payment response", nil)
		case errors.Is(err, service.ErrPaymentAlreadySettled):
			respondError(c, response.CodeBadRequest, "payment already settled", nil)
		default:
			respondError(c, response.CodeInternal, "payment confirm failed", err)
		}
		return
	}

	requestLog(c).Infow("payment_confirm_relayed",
		"order_no", result.Order.OrderNo,
		"succeeded", result.Succeeded,
		"replayed", result.Replayed,
	)
	response.Success(c, gin.H{
		"order":     result.Order,
		"succeeded": result.Succeeded,
	})
}

func respondCallback(c *gin.Context, rspCode, message string) {
	c.JSON(http.StatusOK, gin.H{
		"RspCode": rspCode,
		"Message": message,
	})
}
