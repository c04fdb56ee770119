package service

import (
	"strings"
	"time"

	"github.com/vnshop-next/internal/constants"
	"github.com/vnshop-next/internal/logger"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/queue"
	"github.com/vnshop-next/internal/repository"

	"gorm.io/gorm"
)

// OrderService 订单生命周期服务
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	variantRepo repository.ProductVariantRepository
	queueClient *queue.Client
	expireHours int
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, variantRepo repository.ProductVariantRepository, queueClient *queue.Client, expireHours int) *OrderService {
	if expireHours <= 0 {
		expireHours = 24
	}
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		variantRepo: variantRepo,
		queueClient: queueClient,
		expireHours: expireHours,
	}
}

// allowedTransitions 订单状态机唯一裁决表
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed: true,
		constants.OrderStatusCanceled:  true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusProcessing: true,
		constants.OrderStatusCanceled:   true,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusShipped:  true,
		constants.OrderStatusCanceled: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered: true,
	},
}

func isTransitionAllowed(current, target string) bool {
	if current == target {
		return true
	}
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// ListOrdersByUser 用户订单列表
func (s *OrderService) ListOrdersByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	orders, total, err := s.orderRepo.ListByUser(filter)
	if err != nil {
		return nil, 0, ErrOrderFetchFailed
	}
	return orders, total, nil
}

// GetOrderByUser 用户订单详情
func (s *OrderService) GetOrderByUser(orderID uint, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrdersForAdmin 管理端订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	orders, total, err := s.orderRepo.ListAdmin(filter)
	if err != nil {
		return nil, 0, ErrOrderFetchFailed
	}
	return orders, total, nil
}

// GetOrderForAdmin 管理端订单详情
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// CancelOrder 用户取消订单（仅待确认状态，锁行后归还库存）
func (s *OrderService) CancelOrder(orderID uint, userID uint) (*models.Order, error) {
	if orderID == 0 || userID == 0 {
		return nil, ErrOrderNotFound
	}
	var canceled *models.Order
	now := time.Now()
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return ErrOrderFetchFailed
		}
		if order == nil || order.UserID != userID {
			return ErrOrderNotFound
		}
		if order.Status != constants.OrderStatusPending {
			return ErrOrderCancelNotAllowed
		}

		updates := map[string]interface{}{
			"payment_status": constants.PaymentStatusCanceled,
			"canceled_at":    now,
			"updated_at":     now,
		}
		if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusCanceled, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		// 支付失败回调已归还库存，这里只归还仍被占用的
		if stockStillReserved(order.PaymentStatus) {
			if err := releaseStockByItems(s.productRepo.WithTx(tx), s.variantRepo.WithTx(tx), order.Items); err != nil {
				return err
			}
		}

		order.Status = constants.OrderStatusCanceled
		order.PaymentStatus = constants.PaymentStatusCanceled
		order.CanceledAt = &now
		order.UpdatedAt = now
		canceled = order
		return nil
	})
	if err != nil {
		switch err {
		case ErrOrderNotFound, ErrOrderCancelNotAllowed, ErrOrderFetchFailed, ErrOrderUpdateFailed:
			return nil, err
		}
		logger.Errorw("order_cancel_failed", "order_id", orderID, "user_id", userID, "error", err)
		return nil, ErrOrderUpdateFailed
	}

	logger.Infow("order_canceled_by_user",
		"order_id", canceled.ID,
		"order_no", canceled.OrderNo,
		"user_id", userID,
	)
	return canceled, nil
}

// UpdateOrderStatus 管理端更新订单状态（状态机裁决）
func (s *OrderService) UpdateOrderStatus(orderID uint, targetStatus string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	target := strings.TrimSpace(strings.ToLower(targetStatus))
	if target == "" {
		return nil, ErrOrderStatusInvalid
	}
	if order.Status == target {
		return order, nil
	}
	if !isTransitionAllowed(order.Status, target) {
		logger.Warnw("order_status_transition_rejected",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"current_status", order.Status,
			"target_status", target,
		)
		return nil, ErrOrderStatusInvalid
	}

	if target == constants.OrderStatusCanceled {
		return s.cancelByAdmin(order)
	}

	now := time.Now()
	updates := map[string]interface{}{"updated_at": now}
	if err := s.orderRepo.UpdateStatus(order.ID, target, updates); err != nil {
		return nil, ErrOrderUpdateFailed
	}
	previous := order.Status
	order.Status = target
	order.UpdatedAt = now

	logger.Infow("order_status_updated",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"previous_status", previous,
		"new_status", target,
	)
	return order, nil
}

// cancelByAdmin 管理端取消：归还库存并终结支付状态
func (s *OrderService) cancelByAdmin(order *models.Order) (*models.Order, error) {
	now := time.Now()
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		updates := map[string]interface{}{
			"canceled_at": now,
			"updated_at":  now,
		}
		if order.PaymentStatus != constants.PaymentStatusPaid {
			updates["payment_status"] = constants.PaymentStatusCanceled
		}
		if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusCanceled, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		// 已支付订单退款走线下流程，失败/超时订单库存已被回调归还，都不再补偿
		if stockStillReserved(order.PaymentStatus) {
			if err := releaseStockByItems(s.productRepo.WithTx(tx), s.variantRepo.WithTx(tx), order.Items); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, ErrOrderUpdateFailed
	}
	order.Status = constants.OrderStatusCanceled
	if order.PaymentStatus != constants.PaymentStatusPaid {
		order.PaymentStatus = constants.PaymentStatusCanceled
	}
	order.CanceledAt = &now
	order.UpdatedAt = now
	return order, nil
}

// CancelExpiredOrder 超时取消订单（队列任务入口）
func (s *OrderService) CancelExpiredOrder(orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	var result *models.Order
	now := time.Now()
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return ErrOrderFetchFailed
		}
		if order == nil {
			return ErrOrderNotFound
		}
		result = order
		if order.PaymentStatus != constants.PaymentStatusProcessing {
			return nil
		}
		if order.ExpiresAt != nil && order.ExpiresAt.After(now) {
			return nil
		}

		updates := map[string]interface{}{
			"payment_status": constants.PaymentStatusExpired,
			"canceled_at":    now,
			"updated_at":     now,
		}
		if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusCanceled, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		if err := releaseStockByItems(s.productRepo.WithTx(tx), s.variantRepo.WithTx(tx), order.Items); err != nil {
			return err
		}
		order.Status = constants.OrderStatusCanceled
		order.PaymentStatus = constants.PaymentStatusExpired
		order.CanceledAt = &now
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		if err == ErrOrderNotFound {
			return nil, err
		}
		logger.Errorw("order_expire_cancel_failed", "order_id", orderID, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	if result != nil && result.PaymentStatus == constants.PaymentStatusExpired {
		logger.Infow("order_expired_canceled",
			"order_id", result.ID,
			"order_no", result.OrderNo,
		)
	}
	return result, nil
}

// AutoCancelStaleOrders 兜底清扫：取消超过支付窗口仍在处理中的订单
func (s *OrderService) AutoCancelStaleOrders(limit int) (int, error) {
	before := time.Now().Add(-time.Duration(s.expireHours) * time.Hour)
	orders, err := s.orderRepo.ListStaleByPaymentStatus(constants.PaymentStatusProcessing, before, limit)
	if err != nil {
		return 0, ErrOrderFetchFailed
	}
	canceled := 0
	for i := range orders {
		if _, err := s.CancelExpiredOrder(orders[i].ID); err != nil {
			logger.Warnw("order_sweep_cancel_failed",
				"order_id", orders[i].ID,
				"order_no", orders[i].OrderNo,
				"error", err,
			)
			continue
		}
		canceled++
	}
	if canceled > 0 {
		logger.Infow("order_sweep_completed", "scanned", len(orders), "canceled", canceled)
	}
	return canceled, nil
}
