package service

import (
	"strings"

	"github.com/vnshop-next/internal/logger"
	"github.com/vnshop-next/internal/queue"
	"github.com/vnshop-next/internal/repository"
)

// enqueueOrderConfirmationEmailIfEligible 支付成功后入队确认邮件任务。
// 返回值 skipped 表示订单无可用收件邮箱而被跳过。
func enqueueOrderConfirmationEmailIfEligible(orderRepo repository.OrderRepository, queueClient *queue.Client, orderID uint) (skipped bool, err error) {
	if queueClient == nil || !queueClient.Enabled() || orderID == 0 {
		return true, nil
	}

	// 收件人查询失败不拦截入队，Worker 侧会重新解析
	receiverEmail, lookupErr := orderRepo.ResolveReceiverEmailByOrderID(orderID)
	if lookupErr != nil {
		logger.Warnw("order_email_resolve_receiver_failed", "order_id", orderID, "error", lookupErr)
	} else if strings.TrimSpace(receiverEmail) == "" {
		return true, nil
	}

	if err := queueClient.EnqueueOrderConfirmationEmail(queue.OrderConfirmationEmailPayload{
		OrderID: orderID,
	}); err != nil {
		return false, err
	}
	return false, nil
}
