package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/diancan-next/internal/logger"
	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/promotion"
	"github.com/diancan-next/internal/repository"

	"github.com/shopspring/decimal"
)

// PromotionService 促销业务服务。
// 持有当前促销引擎实例，规则变更时整体重建并原子替换，
// 不对运行中的引擎做增量修改
type PromotionService struct {
	ruleRepo     repository.PromotionRuleRepository
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	settingSvc   *SettingService

	mu     sync.RWMutex
	engine *promotion.Engine
	clock  func() time.Time
}

// NewPromotionService 创建促销服务。初始为空规则引擎，
// 启动时调用 Reload 装载数据库规则；装载失败时保留旧引擎，
// 购物车计算退化为无优惠而不是崩溃
func NewPromotionService(
	ruleRepo repository.PromotionRuleRepository,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	settingSvc *SettingService,
) *PromotionService {
	s := &PromotionService{
		ruleRepo:     ruleRepo,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		settingSvc:   settingSvc,
		clock:        time.Now,
	}
	s.engine = promotion.NewEngine(promotion.Config{}, promotion.WithClock(s.clock))
	return s
}

// SetClock 注入评估时钟，测试用
func (s *PromotionService) SetClock(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.clock = fn
	s.mu.Unlock()
}

// ruleFromModel 将数据库规则转换为引擎规则。
// 条件与优惠 JSON 解析失败时按空值兜底，不中断装载
func ruleFromModel(m *models.PromotionRule) promotion.Rule {
	enabled := m.IsActive
	rule := promotion.Rule{
		ID:           m.ID,
		Name:         m.Name,
		Type:         promotion.RuleType(m.Type),
		Enabled:      &enabled,
		ApplyOrder:   m.ApplyOrder,
		Code:         m.Code,
		Stackable:    m.Stackable,
		ValidFrom:    m.ValidFrom,
		ValidUntil:   m.ValidUntil,
		MinSubtotal:  m.MinSubtotal.Decimal,
		MaxUsage:     m.MaxUsage,
		CurrentUsage: m.CurrentUsage,
	}

	if len(m.ConditionsJSON) > 0 {
		raw, err := json.Marshal(m.ConditionsJSON)
		if err == nil {
			var cond promotion.Conditions
			if err := json.Unmarshal(raw, &cond); err == nil {
				rule.Conditions = &cond
			} else {
				logger.Warnw("promotion_rule_conditions_invalid", "rule_id", m.ID, "error", err)
			}
		}
	}
	if len(m.DiscountJSON) > 0 {
		raw, err := json.Marshal(m.DiscountJSON)
		if err == nil {
			var disc promotion.Discount
			if err := json.Unmarshal(raw, &disc); err == nil {
				rule.Discount = &disc
			} else {
				logger.Warnw("promotion_rule_discount_invalid", "rule_id", m.ID, "error", err)
			}
		}
	}
	return rule
}

// Reload 从数据库整体重建引擎并原子替换
func (s *PromotionService) Reload() error {
	rules, _, err := s.ruleRepo.List(repository.PromotionRuleListFilter{})
	if err != nil {
		logger.Errorw("promotion_engine_reload_failed", "error", err)
		return err
	}

	cfg := promotion.Config{
		Promotions: make([]promotion.Rule, 0, len(rules)),
		Defaults:   s.comparisonDefaults(),
	}
	for i := range rules {
		cfg.Promotions = append(cfg.Promotions, ruleFromModel(&rules[i]))
	}

	s.mu.Lock()
	s.engine = promotion.NewEngine(cfg, promotion.WithClock(s.clock))
	s.mu.Unlock()

	logger.Infow("promotion_engine_reloaded", "rules", len(cfg.Promotions))
	return nil
}

// comparisonDefaults 从设置读取比较策略，缺省走引擎默认值
func (s *PromotionService) comparisonDefaults() promotion.ComparisonDefaults {
	defaults := promotion.ComparisonDefaults{}
	if s.settingSvc == nil {
		return defaults
	}
	value, err := s.settingSvc.GetPromotionDefaults()
	if err != nil {
		logger.Warnw("promotion_defaults_load_failed", "error", err)
		return defaults
	}
	return value
}

// Engine 返回当前引擎快照
func (s *PromotionService) Engine() *promotion.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// BuildLineItems 将购物车行转换为引擎行项。
// 套餐商品解析组成项的商品快照用于价格重构
func (s *PromotionService) BuildLineItems(cartItems []models.CartItem) ([]*promotion.LineItem, error) {
	categorySlugs, err := s.categorySlugs()
	if err != nil {
		return nil, err
	}

	items := make([]*promotion.LineItem, 0, len(cartItems))
	for i := range cartItems {
		ci := &cartItems[i]
		if ci.Product == nil {
			return nil, ErrProductNotFound
		}
		item := &promotion.LineItem{
			Product:    s.productSnapshot(ci.Product, categorySlugs),
			Quantity:   ci.Quantity,
			UnitPrice:  ci.UnitPrice.Decimal,
			TotalPrice: ci.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(ci.Quantity))),
		}
		for _, addon := range ci.Addons {
			item.SelectedAddons = append(item.SelectedAddons, promotion.Addon{
				Name:  addon.Name,
				Price: addon.Price.Decimal,
			})
		}
		if ci.Product.Type == models.ProductTypeCombo && len(ci.Product.ComboItems) > 0 {
			components, err := s.comboComponents(ci.Product, categorySlugs)
			if err != nil {
				return nil, err
			}
			item.ComboItems = components
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *PromotionService) categorySlugs() (map[uint]string, error) {
	categories, err := s.categoryRepo.List()
	if err != nil {
		return nil, err
	}
	slugs := make(map[uint]string, len(categories))
	for _, c := range categories {
		slugs[c.ID] = c.Slug
	}
	return slugs, nil
}

func (s *PromotionService) productSnapshot(p *models.Product, categorySlugs map[uint]string) promotion.ProductSnapshot {
	snapshot := promotion.ProductSnapshot{
		ID:        p.ID,
		Type:      promotion.ProductType(p.Type),
		Category:  categorySlugs[p.CategoryID],
		Price:     p.PriceAmount.Decimal,
		BasePrice: p.BasePrice.Decimal,
	}
	if len(p.BasePrices) > 0 {
		snapshot.BasePrices = make(map[string]decimal.Decimal, len(p.BasePrices))
		for size, price := range p.BasePrices {
			snapshot.BasePrices[size] = price.Decimal
		}
	}
	return snapshot
}

// comboComponents 解析套餐组成项快照
func (s *PromotionService) comboComponents(combo *models.Product, categorySlugs map[uint]string) ([]promotion.ComboComponent, error) {
	ids := make([]uint, 0, len(combo.ComboItems))
	for _, spec := range combo.ComboItems {
		ids = append(ids, spec.ProductID)
	}
	products, err := s.productRepo.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	components := make([]promotion.ComboComponent, 0, len(combo.ComboItems))
	for _, spec := range combo.ComboItems {
		p, ok := byID[spec.ProductID]
		if !ok {
			logger.Warnw("combo_component_missing", "combo_id", combo.ID, "product_id", spec.ProductID)
			continue
		}
		components = append(components, promotion.ComboComponent{
			Product:  s.productSnapshot(p, categorySlugs),
			Size:     spec.Size,
			Quantity: spec.Quantity,
		})
	}
	return components, nil
}

// CartTotals 计算购物车金额
func (s *PromotionService) CartTotals(items []*promotion.LineItem, deliveryFee decimal.Decimal, couponCode string) promotion.CartTotals {
	return s.Engine().CalculateCartTotal(items, deliveryFee, couponCode)
}

// ValidateCoupon 校验优惠码
func (s *PromotionService) ValidateCoupon(code string, subtotal decimal.Decimal) promotion.CouponValidation {
	return s.Engine().ValidateCoupon(code, subtotal)
}

// ActivePromotions 当前生效的促销规则（展示用）
func (s *PromotionService) ActivePromotions() []promotion.Rule {
	return s.Engine().ActivePromotions()
}

// PromotionsByType 按类型查询促销规则
func (s *PromotionService) PromotionsByType(t string) []promotion.Rule {
	return s.Engine().PromotionsByType(promotion.RuleType(t))
}

// EvaluateItem 评估单个行项（后台预览用的组合原语）
func (s *PromotionService) EvaluateItem(item *promotion.LineItem, cartSubtotal decimal.Decimal, couponCode string) []promotion.Evaluation {
	return s.Engine().EvaluateItem(item, cartSubtotal, couponCode)
}

// ChooseBest 选择生效优惠组合（后台预览用的组合原语）
func (s *PromotionService) ChooseBest(evaluations []promotion.Evaluation) []promotion.Evaluation {
	return s.Engine().ChooseBest(evaluations)
}

// ComparePrices 套餐比价（后台预览用的组合原语）
func (s *PromotionService) ComparePrices(item *promotion.LineItem) promotion.PriceComparison {
	return s.Engine().ComparePrices(item)
}
