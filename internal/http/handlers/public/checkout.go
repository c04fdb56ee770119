package public

import (
	"strings"

	"github.com/vnshop-next/internal/http/response"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 结算下单请求
type CheckoutRequest struct {
	PaymentMethod   string `json:"payment_method" binding:"required"`
	ShippingName    string `json:"shipping_name" binding:"required"`
	ShippingPhone   string `json:"shipping_phone" binding:"required"`
	ShippingAddress string `json:"shipping_address" binding:"required"`
	Note            string `json:"note"`
	ShippingFee     string `json:"shipping_fee"`
	ClientTotal     string `json:"client_total"`
}

// Checkout 结算下单
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	var clientTotal *models.Money
	if trimmed := strings.TrimSpace(req.ClientTotal); trimmed != "" {
		total, err := models.NewMoneyFromString(trimmed)
		if err != nil {
			respondError(c, response.CodeBadRequest, "client total invalid", nil)
			return
		}
		clientTotal = &total
	}

	var shippingFee *models.Money
	if trimmed := strings.TrimSpace(req.ShippingFee); trimmed != "" {
		fee, err := models.NewMoneyFromString(trimmed)
		if err != nil {
			respondError(c, response.CodeBadRequest, "shipping fee invalid", nil)
			return
		}
		shippingFee = &fee
	}

	result, err := h.CheckoutService.Checkout(service.CheckoutInput{
		UserID:          uid,
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		ShippingName:    strings.TrimSpace(req.ShippingName),
		ShippingPhone:   strings.TrimSpace(req.ShippingPhone),
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		Note:            strings.TrimSpace(req.Note),
		ShippingFee:     shippingFee,
		ClientTotal:     clientTotal,
		ClientIP:        c.ClientIP(),
	})
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	response.Success(c, result)
}
