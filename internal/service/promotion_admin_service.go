package service

import (
	"strings"
	"time"

	"github.com/diancan-next/internal/logger"
	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/promotion"
	"github.com/diancan-next/internal/repository"
)

// PromotionAdminService 促销规则后台管理服务
type PromotionAdminService struct {
	ruleRepo     repository.PromotionRuleRepository
	promotionSvc *PromotionService
}

// NewPromotionAdminService 创建促销规则管理服务
func NewPromotionAdminService(ruleRepo repository.PromotionRuleRepository, promotionSvc *PromotionService) *PromotionAdminService {
	return &PromotionAdminService{
		ruleRepo:     ruleRepo,
		promotionSvc: promotionSvc,
	}
}

// PromotionRuleInput 创建/更新规则输入
type PromotionRuleInput struct {
	Name        string
	Type        string
	ApplyOrder  int
	Conditions  map[string]interface{}
	Discount    map[string]interface{}
	Code        string
	Stackable   bool
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	MinSubtotal models.Money
	MaxUsage    int
	IsActive    bool
}

// validate 校验规则输入
func (s *PromotionAdminService) validate(input *PromotionRuleInput, excludeID uint) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrPromotionInvalid
	}
	if !promotion.ValidRuleType(promotion.RuleType(input.Type)) {
		return ErrPromotionInvalid
	}
	if input.ApplyOrder < 0 {
		return ErrPromotionInvalid
	}
	if input.MinSubtotal.IsNegative() || input.MaxUsage < 0 {
		return ErrPromotionInvalid
	}
	if input.ValidFrom != nil && input.ValidUntil != nil && input.ValidUntil.Before(*input.ValidFrom) {
		return ErrPromotionInvalid
	}

	input.Code = strings.TrimSpace(input.Code)
	if promotion.RuleType(input.Type) == promotion.RuleTypeCoupon {
		if input.Code == "" {
			return ErrPromotionInvalid
		}
		existing, err := s.ruleRepo.GetByCode(input.Code)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != excludeID {
			return ErrPromotionCodeExists
		}
	}

	if err := validateDiscountMap(input.Discount); err != nil {
		return err
	}
	return validateConditionsMap(input.Conditions)
}

// validateDiscountMap 校验优惠定义。缺省允许（引擎按 0 优惠处理）
func validateDiscountMap(discount map[string]interface{}) error {
	if len(discount) == 0 {
		return nil
	}
	kind, _ := discount["kind"].(string)
	switch promotion.DiscountKind(kind) {
	case promotion.DiscountKindPercentage, promotion.DiscountKindFixed:
		return nil
	case promotion.DiscountKindFreeItem:
		forEvery, err := parseSettingInt(discount["for_every"])
		if err != nil || forEvery <= 0 {
			return ErrPromotionInvalid
		}
		payFor, err := parseSettingInt(discount["pay_for"])
		if err != nil || payFor < 1 || payFor >= forEvery {
			return ErrPromotionInvalid
		}
		return nil
	default:
		return ErrPromotionInvalid
	}
}

// validateConditionsMap 校验适用条件中的时间类字段
func validateConditionsMap(conditions map[string]interface{}) error {
	if len(conditions) == 0 {
		return nil
	}
	if rawDays, ok := conditions["days_of_week"].([]interface{}); ok {
		for _, raw := range rawDays {
			day, err := parseSettingInt(raw)
			if err != nil || day < 0 || day > 6 {
				return ErrPromotionInvalid
			}
		}
	}
	if rawRange, ok := conditions["hour_range"].(map[string]interface{}); ok {
		start, err := parseSettingInt(rawRange["start"])
		if err != nil || start < 0 || start > 23 {
			return ErrPromotionInvalid
		}
		end, err := parseSettingInt(rawRange["end"])
		if err != nil || end < 1 || end > 24 || end <= start {
			return ErrPromotionInvalid
		}
	}
	return nil
}

// List 规则列表
func (s *PromotionAdminService) List(filter repository.PromotionRuleListFilter) ([]models.PromotionRule, int64, error) {
	return s.ruleRepo.List(filter)
}

// Get 规则详情
func (s *PromotionAdminService) Get(id uint) (*models.PromotionRule, error) {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrPromotionNotFound
	}
	return rule, nil
}

// Create 创建规则并重建引擎
func (s *PromotionAdminService) Create(input PromotionRuleInput) (*models.PromotionRule, error) {
	if err := s.validate(&input, 0); err != nil {
		return nil, err
	}

	rule := models.PromotionRule{
		Name:           strings.TrimSpace(input.Name),
		Type:           input.Type,
		ApplyOrder:     input.ApplyOrder,
		ConditionsJSON: models.JSON(input.Conditions),
		DiscountJSON:   models.JSON(input.Discount),
		Code:           input.Code,
		Stackable:      input.Stackable,
		ValidFrom:      input.ValidFrom,
		ValidUntil:     input.ValidUntil,
		MinSubtotal:    input.MinSubtotal,
		MaxUsage:       input.MaxUsage,
		IsActive:       input.IsActive,
	}
	if rule.ApplyOrder == 0 {
		rule.ApplyOrder = 999
	}
	if err := s.ruleRepo.Create(&rule); err != nil {
		return nil, err
	}
	s.reloadEngine("promotion_rule_created", rule.ID)
	return &rule, nil
}

// Update 更新规则并重建引擎
func (s *PromotionAdminService) Update(id uint, input PromotionRuleInput) (*models.PromotionRule, error) {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, ErrPromotionNotFound
	}
	if err := s.validate(&input, id); err != nil {
		return nil, err
	}

	rule.Name = strings.TrimSpace(input.Name)
	rule.Type = input.Type
	rule.ApplyOrder = input.ApplyOrder
	if rule.ApplyOrder == 0 {
		rule.ApplyOrder = 999
	}
	rule.ConditionsJSON = models.JSON(input.Conditions)
	rule.DiscountJSON = models.JSON(input.Discount)
	rule.Code = input.Code
	rule.Stackable = input.Stackable
	rule.ValidFrom = input.ValidFrom
	rule.ValidUntil = input.ValidUntil
	rule.MinSubtotal = input.MinSubtotal
	rule.MaxUsage = input.MaxUsage
	rule.IsActive = input.IsActive

	if err := s.ruleRepo.Update(rule); err != nil {
		return nil, err
	}
	s.reloadEngine("promotion_rule_updated", rule.ID)
	return rule, nil
}

// Delete 删除规则并重建引擎
func (s *PromotionAdminService) Delete(id uint) error {
	rule, err := s.ruleRepo.GetByID(id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrPromotionNotFound
	}
	if err := s.ruleRepo.Delete(id); err != nil {
		return err
	}
	s.reloadEngine("promotion_rule_deleted", id)
	return nil
}

func (s *PromotionAdminService) reloadEngine(event string, ruleID uint) {
	if s.promotionSvc == nil {
		return
	}
	if err := s.promotionSvc.Reload(); err != nil {
		logger.Errorw(event+"_reload_failed", "rule_id", ruleID, "error", err)
		return
	}
	logger.Infow(event, "rule_id", ruleID)
}
