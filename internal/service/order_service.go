package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/diancan-next/internal/constants"
	"github.com/diancan-next/internal/logger"
	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/payment"
	"github.com/diancan-next/internal/promotion"
	"github.com/diancan-next/internal/queue"
	"github.com/diancan-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 未配置时的订单支付超时分钟数
const defaultPaymentExpireMinutes = 15

var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPendingPayment: {
		constants.OrderStatusPaid:     true,
		constants.OrderStatusCanceled: true,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusPreparing: true,
		constants.OrderStatusCanceled:  true,
	},
	constants.OrderStatusPreparing: {
		constants.OrderStatusDelivering: true,
	},
	constants.OrderStatusDelivering: {
		constants.OrderStatusCompleted: true,
	},
}

// OrderService 订单业务服务
type OrderService struct {
	orderRepo       repository.OrderRepository
	cartRepo        repository.CartRepository
	ruleRepo        repository.PromotionRuleRepository
	couponUsageRepo repository.CouponUsageRepository
	promotionSvc    *PromotionService
	settingSvc      *SettingService
	queueClient     *queue.Client
	provider        payment.Provider
	clock           func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	ruleRepo repository.PromotionRuleRepository,
	couponUsageRepo repository.CouponUsageRepository,
	promotionSvc *PromotionService,
	settingSvc *SettingService,
	queueClient *queue.Client,
	provider payment.Provider,
) *OrderService {
	return &OrderService{
		orderRepo:       orderRepo,
		cartRepo:        cartRepo,
		ruleRepo:        ruleRepo,
		couponUsageRepo: couponUsageRepo,
		promotionSvc:    promotionSvc,
		settingSvc:      settingSvc,
		queueClient:     queueClient,
		provider:        provider,
		clock:           time.Now,
	}
}

// SetClock 注入时钟（测试用）
func (s *OrderService) SetClock(fn func() time.Time) {
	if fn != nil {
		s.clock = fn
	}
}

// CheckoutInput 下单输入
type CheckoutInput struct {
	SessionToken  string
	CustomerName  string
	CustomerPhone string
	Address       string
	Remark        string
	CouponCode    string
	ClientIP      string
}

// Checkout 结算下单。计价完全由促销引擎给出，订单保存计价快照
func (s *OrderService) Checkout(input CheckoutInput) (*models.Order, error) {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	input.Address = strings.TrimSpace(input.Address)
	if input.CustomerName == "" || input.CustomerPhone == "" || input.Address == "" {
		return nil, ErrOrderContactRequired
	}

	cartItems, err := s.cartRepo.ListBySession(input.SessionToken)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrCartEmpty
	}

	lineItems, err := s.promotionSvc.BuildLineItems(cartItems)
	if err != nil {
		return nil, err
	}

	deliveryFee, err := s.settingSvc.GetDeliveryFee(decimal.Zero)
	if err != nil {
		return nil, err
	}
	totals := s.promotionSvc.CartTotals(lineItems, deliveryFee, input.CouponCode)

	couponCode := strings.TrimSpace(input.CouponCode)
	var couponRule *promotion.Rule
	if couponCode != "" {
		validation := s.promotionSvc.ValidateCoupon(couponCode, totals.Subtotal)
		if !validation.Valid {
			return nil, fmt.Errorf("%w: %s", ErrCouponInvalid, validation.Message)
		}
		couponRule = validation.Promotion
	}

	expireMinutes, err := s.settingSvc.GetOrderPaymentExpireMinutes(defaultPaymentExpireMinutes)
	if err != nil {
		expireMinutes = defaultPaymentExpireMinutes
	}

	now := s.clock()
	expiresAt := now.Add(time.Duration(expireMinutes) * time.Minute)
	order := &models.Order{
		OrderNo:        generateOrderNo(now),
		Status:         constants.OrderStatusPendingPayment,
		Currency:       s.settingSvc.GetSiteCurrency(),
		CustomerName:   input.CustomerName,
		CustomerPhone:  input.CustomerPhone,
		Address:        input.Address,
		Remark:         strings.TrimSpace(input.Remark),
		SubtotalAmount: models.NewMoneyFromDecimal(totals.Subtotal),
		DiscountAmount: models.NewMoneyFromDecimal(totals.Discount),
		SavingsAmount:  models.NewMoneyFromDecimal(totals.TotalSavings),
		DeliveryFee:    models.NewMoneyFromDecimal(totals.DeliveryFee),
		TotalAmount:    models.NewMoneyFromDecimal(totals.Total),
		ClientIP:       strings.TrimSpace(input.ClientIP),
		ExpiresAt:      &expiresAt,
	}
	if couponRule != nil {
		order.CouponCode = couponRule.Code
		ruleID := couponRule.ID
		order.CouponRuleID = &ruleID
	}

	items := buildOrderItems(cartItems, totals.Items)

	couponDiscount := couponShare(totals.Items, couponRule)
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		if err := orderRepo.Create(order, items); err != nil {
			return err
		}
		if couponRule != nil {
			usageRepo := s.couponUsageRepo.WithTx(tx)
			usage := &models.CouponUsage{
				RuleID:         couponRule.ID,
				Code:           couponRule.Code,
				OrderID:        order.ID,
				DiscountAmount: models.NewMoneyFromDecimal(couponDiscount),
			}
			if err := usageRepo.Create(usage); err != nil {
				return err
			}
			if err := s.ruleRepo.WithTx(tx).IncrementUsage(couponRule.ID, 1); err != nil {
				return err
			}
		}
		cartRepo := s.cartRepo.WithTx(tx)
		return cartRepo.ClearBySession(input.SessionToken)
	})
	if err != nil {
		logger.Errorw("order_create_failed", "order_no", order.OrderNo, "error", err)
		return nil, ErrOrderCreateFailed
	}

	if couponRule != nil {
		s.reloadPromotions("order_checkout")
	}

	if s.queueClient != nil {
		payload := queue.OrderTimeoutCancelPayload{OrderID: order.ID}
		if err := s.queueClient.EnqueueOrderTimeoutCancel(payload, time.Until(expiresAt)); err != nil {
			logger.Errorw("order_enqueue_timeout_cancel_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"error", err,
			)
			if cancelErr := s.cancelOrder(order, true); cancelErr != nil {
				logger.Errorw("order_timeout_rollback_cancel_failed",
					"order_id", order.ID,
					"order_no", order.OrderNo,
					"error", cancelErr,
				)
			}
			return nil, ErrQueueUnavailable
		}
	}

	full, err := s.orderRepo.GetByID(order.ID)
	if err == nil && full != nil {
		return full, nil
	}
	return order, nil
}

// buildOrderItems 将购物车行与引擎行项合并为订单项快照。两者按下标对齐
func buildOrderItems(cartItems []models.CartItem, lineItems []*promotion.LineItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(cartItems))
	for i := range cartItems {
		ci := &cartItems[i]
		item := models.OrderItem{
			ProductID: ci.ProductID,
			Size:      ci.Size,
			UnitPrice: ci.UnitPrice,
			Quantity:  ci.Quantity,
			Addons:    ci.Addons,
		}
		if ci.Product != nil {
			item.TitleJSON = ci.Product.TitleJSON
		}
		if i < len(lineItems) && lineItems[i] != nil {
			li := lineItems[i]
			item.TotalPrice = models.NewMoneyFromDecimal(li.TotalPrice)
			discount := decimal.Zero
			for _, applied := range li.AppliedPromotions {
				discount = discount.Add(applied.Discount)
				item.AppliedPromotions = append(item.AppliedPromotions, models.AppliedPromotionRecord{
					PromotionID:   applied.PromotionID,
					PromotionName: applied.PromotionName,
					Type:          string(applied.Type),
					Discount:      models.NewMoneyFromDecimal(applied.Discount),
				})
			}
			item.DiscountAmount = models.NewMoneyFromDecimal(discount)
		} else {
			item.TotalPrice = models.NewMoneyFromDecimal(ci.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(ci.Quantity))))
		}
		items = append(items, item)
	}
	return items
}

// couponShare 汇总优惠码规则在各行项上的优惠金额
func couponShare(lineItems []*promotion.LineItem, couponRule *promotion.Rule) decimal.Decimal {
	total := decimal.Zero
	if couponRule == nil {
		return total
	}
	for _, li := range lineItems {
		if li == nil {
			continue
		}
		for _, applied := range li.AppliedPromotions {
			if applied.PromotionID == couponRule.ID {
				total = total.Add(applied.Discount)
			}
		}
	}
	return total
}

// Pay 支付订单。渠道拒绝返回 ErrPaymentFailed，已过期的订单当场取消
func (s *OrderService) Pay(ctx context.Context, orderNo, phone string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNoAndPhone(orderNo, phone)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return nil, ErrOrderNotPayable
	}
	now := s.clock()
	if order.ExpiresAt != nil && !order.ExpiresAt.After(now) {
		if err := s.cancelOrder(order, true); err != nil {
			logger.Errorw("order_expire_cancel_failed", "order_id", order.ID, "error", err)
		}
		return nil, ErrOrderNotPayable
	}

	result, err := s.provider.Charge(ctx, payment.ChargeRequest{
		OrderNo:  order.OrderNo,
		Amount:   order.TotalAmount.Decimal,
		Currency: order.Currency,
	})
	if err != nil {
		logger.Errorw("order_payment_charge_failed", "order_no", order.OrderNo, "error", err)
		return nil, ErrPaymentFailed
	}
	if !result.Succeeded {
		logger.Warnw("order_payment_rejected", "order_no", order.OrderNo, "message", result.Message)
		return nil, ErrPaymentFailed
	}

	updates := map[string]interface{}{
		"paid_at":        now,
		"payment_txn_id": result.TransactionID,
		"updated_at":     now,
	}
	if err := s.orderRepo.UpdateStatus(order.ID, constants.OrderStatusPaid, updates); err != nil {
		return nil, ErrOrderUpdateFailed
	}
	logger.Infow("order_paid", "order_no", order.OrderNo, "txn_id", result.TransactionID)

	order.Status = constants.OrderStatusPaid
	order.PaidAt = &now
	order.PaymentTxnID = result.TransactionID
	order.UpdatedAt = now
	return order, nil
}

// Cancel 顾客取消待支付订单
func (s *OrderService) Cancel(orderNo, phone string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNoAndPhone(orderNo, phone)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return nil, ErrOrderStatusInvalid
	}
	if err := s.cancelOrder(order, true); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus 后台推进订单状态，按状态机校验
func (s *OrderService) UpdateStatus(id uint, target string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	nexts, ok := allowedTransitions[order.Status]
	if !ok || !nexts[target] {
		return nil, ErrOrderStatusInvalid
	}

	if target == constants.OrderStatusCanceled {
		if err := s.cancelOrder(order, true); err != nil {
			return nil, err
		}
		return order, nil
	}

	now := s.clock()
	updates := map[string]interface{}{"updated_at": now}
	switch target {
	case constants.OrderStatusPaid:
		updates["paid_at"] = now
	case constants.OrderStatusCompleted:
		updates["delivered_at"] = now
	}
	if err := s.orderRepo.UpdateStatus(order.ID, target, updates); err != nil {
		return nil, ErrOrderUpdateFailed
	}
	logger.Infow("order_status_updated", "order_no", order.OrderNo, "from", order.Status, "to", target)

	order.Status = target
	order.UpdatedAt = now
	switch target {
	case constants.OrderStatusPaid:
		order.PaidAt = &now
	case constants.OrderStatusCompleted:
		order.DeliveredAt = &now
	}
	return order, nil
}

// CancelTimeout 超时取消任务入口。订单已离开待支付状态则幂等跳过
func (s *OrderService) CancelTimeout(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return nil
	}
	if order.ExpiresAt != nil && order.ExpiresAt.After(s.clock()) {
		return nil
	}
	if err := s.cancelOrder(order, true); err != nil {
		return err
	}
	logger.Infow("order_timeout_canceled", "order_id", order.ID, "order_no", order.OrderNo)
	return nil
}

// SweepExpired 兜底扫描过期未支付订单，队列任务丢失时的补偿路径
func (s *OrderService) SweepExpired(limit int) (int, error) {
	orders, err := s.orderRepo.ListExpiredPending(s.clock(), limit)
	if err != nil {
		return 0, err
	}
	canceled := 0
	for i := range orders {
		if err := s.CancelTimeout(orders[i].ID); err != nil {
			logger.Errorw("order_sweep_cancel_failed", "order_id", orders[i].ID, "error", err)
			continue
		}
		canceled++
	}
	return canceled, nil
}

// cancelOrder 取消订单并释放优惠码使用记录
func (s *OrderService) cancelOrder(order *models.Order, rollbackCoupon bool) error {
	if order == nil {
		return ErrOrderNotFound
	}
	now := s.clock()
	releasedCoupon := false
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		updates := map[string]interface{}{
			"canceled_at": now,
			"updated_at":  now,
		}
		if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusCanceled, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		if rollbackCoupon {
			usageRepo := s.couponUsageRepo.WithTx(tx)
			usages, err := usageRepo.ListByOrderID(order.ID)
			if err != nil {
				return err
			}
			if len(usages) > 0 {
				if err := usageRepo.DeleteByOrderID(order.ID); err != nil {
					return err
				}
				ruleRepo := s.ruleRepo.WithTx(tx)
				counts := make(map[uint]int)
				for _, usage := range usages {
					counts[usage.RuleID]++
				}
				for ruleID, count := range counts {
					if err := ruleRepo.IncrementUsage(ruleID, -count); err != nil {
						return err
					}
				}
				releasedCoupon = true
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.Status = constants.OrderStatusCanceled
	order.CanceledAt = &now
	order.UpdatedAt = now
	if releasedCoupon {
		s.reloadPromotions("order_cancel")
	}
	return nil
}

// GetByOrderNoAndPhone 顾客查单
func (s *OrderService) GetByOrderNoAndPhone(orderNo, phone string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNoAndPhone(orderNo, phone)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetByID 后台查单
func (s *OrderService) GetByID(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListAdmin 后台订单列表
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// reloadPromotions 规则使用次数变化后重建引擎
func (s *OrderService) reloadPromotions(event string) {
	if s.promotionSvc == nil {
		return
	}
	if err := s.promotionSvc.Reload(); err != nil {
		logger.Warnw("promotion_reload_failed", "trigger", event, "error", err)
	}
}

func generateOrderNo(now time.Time) string {
	return fmt.Sprintf("DC%s%s", now.Format("20060102150405"), randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
