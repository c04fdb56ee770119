package service

import (
	"github.com/vnshop-next/internal/constants"
	"github.com/vnshop-next/internal/models"
	"github.com/vnshop-next/internal/repository"
)

// stockStillReserved 判断该支付状态下预占库存是否仍在订单名下。
// 失败/超时回调已触发归还，取消时不得二次补偿；已支付订单的库存随货走。
func stockStillReserved(paymentStatus string) bool {
	switch paymentStatus {
	case constants.PaymentStatusPending, constants.PaymentStatusProcessing:
		return true
	default:
		return false
	}
}

type stockSummary struct {
	ByVariant map[uint]int
	ByProduct map[uint]int
}

// summarizeStockItems 汇总订单项的库存占用（规格与商品总库存同时记账）
func summarizeStockItems(items []models.OrderItem) stockSummary {
	result := stockSummary{
		ByVariant: make(map[uint]int),
		ByProduct: make(map[uint]int),
	}
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			continue
		}
		result.ByProduct[item.ProductID] += item.Quantity
		if item.VariantID != nil && *item.VariantID > 0 {
			result.ByVariant[*item.VariantID] += item.Quantity
		}
	}
	return result
}

// releaseStockByItems 按订单项归还库存（支付失败/取消/超时共用）
func releaseStockByItems(productRepo repository.ProductRepository, variantRepo repository.ProductVariantRepository, items []models.OrderItem) error {
	summary := summarizeStockItems(items)
	if variantRepo != nil {
		for variantID, quantity := range summary.ByVariant {
			if _, err := variantRepo.ReleaseStock(variantID, quantity); err != nil {
				return err
			}
		}
	}
	if productRepo == nil {
		return nil
	}
	for productID, quantity := range summary.ByProduct {
		if _, err := productRepo.ReleaseStock(productID, quantity); err != nil {
			return err
		}
	}
	return nil
}
