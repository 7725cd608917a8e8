package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/diancan-next/internal/constants"
	"github.com/diancan-next/internal/models"
)

func checkoutInput(token string) CheckoutInput {
	return CheckoutInput{
		SessionToken:  token,
		CustomerName:  "王小明",
		CustomerPhone: "13800138000",
		Address:       "中山路 1 号",
	}
}

func (env *serviceTestEnv) fillCart(t *testing.T, token string, productID uint, quantity int) {
	t.Helper()
	if _, err := env.cartSvc.AddItem(token, AddItemInput{ProductID: productID, Quantity: quantity}); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
}

func TestCheckoutValidation(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "mains")
	product := env.createSimpleProduct(t, category.ID, "beef-rice", "28.00")

	token := env.cartSvc.NewSessionToken()
	if _, err := env.orderSvc.Checkout(checkoutInput(token)); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}

	env.fillCart(t, token, product.ID, 1)
	input := checkoutInput(token)
	input.CustomerPhone = "  "
	if _, err := env.orderSvc.Checkout(input); !errors.Is(err, ErrOrderContactRequired) {
		t.Fatalf("expected ErrOrderContactRequired, got %v", err)
	}
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "mains")
	product := env.createSimpleProduct(t, category.ID, "beef-rice", "28.00")

	token := env.cartSvc.NewSessionToken()
	env.fillCart(t, token, product.ID, 2)

	order, err := env.orderSvc.Checkout(checkoutInput(token))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected pending_payment, got %s", order.Status)
	}
	if !strings.HasPrefix(order.OrderNo, "DC") {
		t.Fatalf("expected DC order no prefix, got %s", order.OrderNo)
	}
	if !order.SubtotalAmount.Decimal.Equal(testMoney("56.00").Decimal) {
		t.Fatalf("expected subtotal 56.00, got %s", order.SubtotalAmount.Decimal)
	}
	if order.ExpiresAt == nil {
		t.Fatalf("expected payment expiry to be set")
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 order item, got %d", len(order.Items))
	}
	if order.Items[0].Quantity != 2 {
		t.Fatalf("expected item quantity 2, got %d", order.Items[0].Quantity)
	}

	// 下单后购物车清空
	items, err := env.cartRepo.ListBySession(token)
	if err != nil {
		t.Fatalf("list cart failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart after checkout, got %d items", len(items))
	}
}

func TestCheckoutCouponUsage(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "mains")
	product := env.createSimpleProduct(t, category.ID, "beef-rice", "28.00")
	rule := env.createCouponRule(t, "SAVE10", "10", "50.00", 5)
	env.reloadRules(t)

	// 门槛未达：单件 28 < 50
	token := env.cartSvc.NewSessionToken()
	env.fillCart(t, token, product.ID, 1)
	input := checkoutInput(token)
	input.CouponCode = "SAVE10"
	if _, err := env.orderSvc.Checkout(input); !errors.Is(err, ErrCouponInvalid) {
		t.Fatalf("expected ErrCouponInvalid below minimum, got %v", err)
	}

	// 达标后占用一次使用额度
	env.fillCart(t, token, product.ID, 1)
	order, err := env.orderSvc.Checkout(input)
	if err != nil {
		t.Fatalf("checkout with coupon failed: %v", err)
	}
	if order.CouponCode != "SAVE10" {
		t.Fatalf("expected coupon code on order, got %q", order.CouponCode)
	}
	if !order.TotalAmount.Decimal.Equal(testMoney("46.00").Decimal) {
		t.Fatalf("expected total 46.00, got %s", order.TotalAmount.Decimal)
	}

	usages, err := env.usageRepo.ListByOrderID(order.ID)
	if err != nil {
		t.Fatalf("list coupon usages failed: %v", err)
	}
	if len(usages) != 1 || usages[0].RuleID != rule.ID {
		t.Fatalf("expected 1 usage for rule %d, got %+v", rule.ID, usages)
	}
	stored, err := env.ruleRepo.GetByID(rule.ID)
	if err != nil || stored == nil {
		t.Fatalf("load rule failed: %v", err)
	}
	if stored.CurrentUsage != 1 {
		t.Fatalf("expected current_usage 1, got %d", stored.CurrentUsage)
	}
}

func TestPayOrder(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "mains")
	product := env.createSimpleProduct(t, category.ID, "beef-rice", "28.00")

	token := env.cartSvc.NewSessionToken()
	env.fillCart(t, token, product.ID, 1)
	order, err := env.orderSvc.Checkout(checkoutInput(token))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	// 渠道拒绝不改变订单状态
	env.provider.FailAll = true
	if _, err := env.orderSvc.Pay(context.Background(), order.OrderNo, "13800138000"); !errors.Is(err, ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
	stored, err := env.orderSvc.GetByID(order.ID)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected order still pending after rejection, got %s", stored.Status)
	}

	env.provider.FailAll = false
	paid, err := env.orderSvc.Pay(context.Background(), order.OrderNo, "13800138000")
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
	if paid.PaymentTxnID == "" {
		t.Fatalf("expected payment txn id")
	}

	// 已支付订单不能重复支付
	if _, err := env.orderSvc.Pay(context.Background(), order.OrderNo, "13800138000"); !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("expected ErrOrderNotPayable, got %v", err)
	}

	// 电话不匹配按不存在处理
	if _, err := env.orderSvc.Pay(context.Background(), order.OrderNo, "13900000000"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for wrong phone, got %v", err)
	}
}

func TestPayExpiredOrderCancels(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "mains")
	product := env.createSimpleProduct(t, category.ID, "beef-rice", "28.00")

	token := env.cartSvc.NewSessionToken()
	env.fillCart(t, token, product.ID, 1)
	order, err := env.orderSvc.Checkout(checkoutInput(token))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	env.orderSvc.SetClock(func() time.Time { return time.Now().Add(time.Hour) })
	if _, err := env.orderSvc.Pay(context.Background(), order.OrderNo, "13800138000"); !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("expected ErrOrderNotPayable for expired order, got %v", err)
	}
	stored, err := env.orderSvc.GetByID(order.ID)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected expired order canceled, got %s", stored.Status)
	}
}

func TestCancelReleasesCouponUsage(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "mains")
	product := env.createSimpleProduct(t, category.ID, "beef-rice", "28.00")
	rule := env.createCouponRule(t, "SAVE10", "10", "50.00", 5)
	env.reloadRules(t)

	token := env.cartSvc.NewSessionToken()
	env.fillCart(t, token, product.ID, 2)
	input := checkoutInput(token)
	input.CouponCode = "SAVE10"
	order, err := env.orderSvc.Checkout(input)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	canceled, err := env.orderSvc.Cancel(order.OrderNo, "13800138000")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}

	usages, err := env.usageRepo.ListByOrderID(order.ID)
	if err != nil {
		t.Fatalf("list usages failed: %v", err)
	}
	if len(usages) != 0 {
		t.Fatalf("expected coupon usage released, got %d records", len(usages))
	}
	stored, err := env.ruleRepo.GetByID(rule.ID)
	if err != nil || stored == nil {
		t.Fatalf("load rule failed: %v", err)
	}
	if stored.CurrentUsage != 0 {
		t.Fatalf("expected current_usage back to 0, got %d", stored.CurrentUsage)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "mains")
	product := env.createSimpleProduct(t, category.ID, "beef-rice", "28.00")

	token := env.cartSvc.NewSessionToken()
	env.fillCart(t, token, product.ID, 1)
	order, err := env.orderSvc.Checkout(checkoutInput(token))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	// 待支付不能直接进入备餐
	if _, err := env.orderSvc.UpdateStatus(order.ID, constants.OrderStatusPreparing); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid, got %v", err)
	}

	for _, target := range []string{
		constants.OrderStatusPaid,
		constants.OrderStatusPreparing,
		constants.OrderStatusDelivering,
		constants.OrderStatusCompleted,
	} {
		updated, err := env.orderSvc.UpdateStatus(order.ID, target)
		if err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
		if updated.Status != target {
			t.Fatalf("expected status %s, got %s", target, updated.Status)
		}
	}

	stored, err := env.orderSvc.GetByID(order.ID)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.DeliveredAt == nil {
		t.Fatalf("expected delivered_at on completed order")
	}
	// 完结订单没有后续状态
	if _, err := env.orderSvc.UpdateStatus(order.ID, constants.OrderStatusCanceled); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected ErrOrderStatusInvalid after completion, got %v", err)
	}
}

func TestCancelTimeoutIdempotent(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "mains")
	product := env.createSimpleProduct(t, category.ID, "beef-rice", "28.00")

	token := env.cartSvc.NewSessionToken()
	env.fillCart(t, token, product.ID, 1)
	order, err := env.orderSvc.Checkout(checkoutInput(token))
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	// 未到期不动作
	if err := env.orderSvc.CancelTimeout(order.ID); err != nil {
		t.Fatalf("cancel timeout failed: %v", err)
	}
	stored, err := env.orderSvc.GetByID(order.ID)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("expected order untouched before expiry, got %s", stored.Status)
	}

	env.orderSvc.SetClock(func() time.Time { return time.Now().Add(time.Hour) })
	if err := env.orderSvc.CancelTimeout(order.ID); err != nil {
		t.Fatalf("cancel timeout failed: %v", err)
	}
	stored, err = env.orderSvc.GetByID(order.ID)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected canceled after expiry, got %s", stored.Status)
	}

	// 再次触发为幂等空操作
	if err := env.orderSvc.CancelTimeout(order.ID); err != nil {
		t.Fatalf("expected idempotent cancel, got %v", err)
	}
	var count int64
	if err := env.db.Model(&models.Order{}).Where("status = ?", constants.OrderStatusCanceled).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one canceled order, got %d", count)
	}
}
