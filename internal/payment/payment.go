package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeRequest 扣款请求
type ChargeRequest struct {
	OrderNo  string          `json:"order_no"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Result 扣款结果。Succeeded 为 false 表示渠道明确拒绝
type Result struct {
	Succeeded     bool   `json:"succeeded"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message,omitempty"`
}

// Provider 支付渠道抽象。订单服务只关心成功与否和渠道流水号
type Provider interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
}

// MockProvider 模拟渠道，金额为正即成功
type MockProvider struct {
	// FailAll 为 true 时所有扣款返回失败
	FailAll bool
}

// NewMockProvider 创建模拟渠道
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name 渠道名称
func (p *MockProvider) Name() string {
	return "mock"
}

// Charge 模拟扣款
func (p *MockProvider) Charge(_ context.Context, req ChargeRequest) (*Result, error) {
	if p.FailAll {
		return &Result{Succeeded: false, Message: "渠道拒绝"}, nil
	}
	if req.Amount.IsNegative() {
		return &Result{Succeeded: false, Message: "金额非法"}, nil
	}
	return &Result{
		Succeeded:     true,
		TransactionID: fmt.Sprintf("mock_%d_%s", time.Now().Unix(), uuid.NewString()[:8]),
	}, nil
}
