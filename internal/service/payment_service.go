package service

import (
	"net/url"
	"time"

	"github.com/vnshop-next/internal/constants"
	"github.com/vnshop-next/internal/logger"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/payment/vnpay"
	"github.com/vnshop-next/internal/queue"
	"github.com/vnshop-next/internal/repository"

	"gorm.io/gorm"
)

// PaymentService 支付回调对账服务
type PaymentService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	variantRepo repository.ProductVariantRepository
	cartRepo    repository.CartRepository
	queueClient *queue.Client
	gateway     *vnpay.Gateway
}

// NewPaymentService 创建支付服务
func NewPaymentService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, variantRepo repository.ProductVariantRepository, cartRepo repository.CartRepository, queueClient *queue.Client, gateway *vnpay.Gateway) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		variantRepo: variantRepo,
		cartRepo:    cartRepo,
		queueClient: queueClient,
		gateway:     gateway,
	}
}

// GatewayReturnResult 回调处理结果
type GatewayReturnResult struct {
	Order     *models.Order
	Succeeded bool
	// Replayed 表示重复回调被幂等吸收，未产生新的状态变更
	Replayed bool
}

// HandleGatewayReturn 处理网关回调：先验签，后锁单对账，幂等落账
func (s *PaymentService) HandleGatewayReturn(params url.Values) (*GatewayReturnResult, error) {
	if s.gateway == nil {
		return nil, ErrPaymentGatewayDisabled
	}

	callback, err := s.gateway.VerifyCallback(params)
	if err != nil {
		logger.Warnw("payment_callback_signature_invalid",
			"txn_ref", params.Get("vnp_TxnRef"),
			"error", err,
		)
		return nil, ErrPaymentSignatureInvalid
	}

	log := logger.SW(
		"order_no", callback.OrderNo,
		"gateway_txn_no", callback.TransactionNo,
		"response_code", callback.ResponseCode,
		"transaction_status", callback.TransactionStatus,
		"callback_amount_minor", callback.AmountMinor,
	)
	log.Infow("payment_callback_received")

	result := &GatewayReturnResult{Succeeded: callback.Succeeded}
	var clearCartUserID uint

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByOrderNoForUpdate(callback.OrderNo)
		if err != nil {
			return ErrOrderFetchFailed
		}
		if order == nil {
			return ErrOrderNotFound
		}
		result.Order = order

		if order.PaymentMethod != constants.PaymentMethodBankTransfer {
			log.Warnw("payment_callback_method_mismatch", "payment_method", order.PaymentMethod)
			return ErrPaymentOrderMismatch
		}
		if order.TotalAmount.MinorUnits() != callback.AmountMinor {
			log.Warnw("payment_callback_amount_mismatch",
				"stored_amount_minor", order.TotalAmount.MinorUnits(),
			)
			return ErrPaymentAmountMismatch
		}

		// 幂等处理：已完结的支付状态不再回退
		switch order.PaymentStatus {
		case constants.PaymentStatusPaid:
			log.Infow("payment_callback_idempotent_paid")
			result.Replayed = true
			if !callback.Succeeded {
				return ErrPaymentAlreadySettled
			}
			return nil
		case constants.PaymentStatusFailed, constants.PaymentStatusExpired, constants.PaymentStatusCanceled:
			log.Infow("payment_callback_idempotent_settled", "current_status", order.PaymentStatus)
			result.Replayed = true
			return nil
		}

		now := time.Now()
		if callback.Succeeded {
			updates := map[string]interface{}{
				"payment_status": constants.PaymentStatusPaid,
				"paid_at":        now,
				"updated_at":     now,
			}
			if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusConfirmed, updates); err != nil {
				return ErrPaymentUpdateFailed
			}
			if err := s.cartRepo.WithTx(tx).ClearByUser(order.UserID); err != nil {
				return err
			}
			order.Status = constants.OrderStatusConfirmed
			order.PaymentStatus = constants.PaymentStatusPaid
			order.PaidAt = &now
			order.UpdatedAt = now
			clearCartUserID = order.UserID
			return nil
		}

		updates := map[string]interface{}{
			"payment_status": constants.PaymentStatusFailed,
			"updated_at":     now,
		}
		if err := orderRepo.UpdateStatus(order.ID, order.Status, updates); err != nil {
			return ErrPaymentUpdateFailed
		}
		if err := releaseStockByItems(s.productRepo.WithTx(tx), s.variantRepo.WithTx(tx), order.Items); err != nil {
			return err
		}
		order.PaymentStatus = constants.PaymentStatusFailed
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		switch err {
		case ErrOrderNotFound, ErrOrderFetchFailed, ErrPaymentOrderMismatch,
			ErrPaymentAmountMismatch, ErrPaymentAlreadySettled, ErrPaymentUpdateFailed:
			return result, err
		}
		log.Errorw("payment_callback_apply_failed", "error", err)
		return result, ErrPaymentUpdateFailed
	}

	if result.Replayed {
		return result, nil
	}

	if callback.Succeeded && clearCartUserID != 0 {
		// 确认邮件走异步队列，失败不影响已提交的支付结果
		if _, err := enqueueOrderConfirmationEmailIfEligible(s.orderRepo, s.queueClient, result.Order.ID); err != nil {
			log.Warnw("payment_enqueue_confirmation_email_failed",
				"order_id", result.Order.ID,
				"error", err,
			)
		}
	}

	log.Infow("payment_callback_processed",
		"order_id", result.Order.ID,
		"succeeded", callback.Succeeded,
		"new_payment_status", result.Order.PaymentStatus,
	)
	return result, nil
}
