package repository

import (
	"errors"
	"strings"

	"github.com/diancan-next/internal/models"

	"gorm.io/gorm"
)

// PromotionRuleRepository 促销规则数据访问接口
type PromotionRuleRepository interface {
	GetByID(id uint) (*models.PromotionRule, error)
	GetByCode(code string) (*models.PromotionRule, error)
	List(filter PromotionRuleListFilter) ([]models.PromotionRule, int64, error)
	Create(rule *models.PromotionRule) error
	Update(rule *models.PromotionRule) error
	Delete(id uint) error
	IncrementUsage(id uint, delta int) error
	WithTx(tx *gorm.DB) *GormPromotionRuleRepository
}

// PromotionRuleListFilter 促销规则列表筛选
type PromotionRuleListFilter struct {
	Type     string
	Code     string
	IsActive *bool
	Page     int
	PageSize int
}

// GormPromotionRuleRepository GORM 实现
type GormPromotionRuleRepository struct {
	db *gorm.DB
}

// NewPromotionRuleRepository 创建促销规则仓库
func NewPromotionRuleRepository(db *gorm.DB) *GormPromotionRuleRepository {
	return &GormPromotionRuleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionRuleRepository) WithTx(tx *gorm.DB) *GormPromotionRuleRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionRuleRepository{db: tx}
}

// GetByID 根据ID获取规则
func (r *GormPromotionRuleRepository) GetByID(id uint) (*models.PromotionRule, error) {
	var rule models.PromotionRule
	if err := r.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// GetByCode 根据优惠码获取规则（大小写不敏感）
func (r *GormPromotionRuleRepository) GetByCode(code string) (*models.PromotionRule, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var rule models.PromotionRule
	err := r.db.Where("type = ? AND LOWER(code) = LOWER(?)", "coupon", code).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// List 获取规则列表
func (r *GormPromotionRuleRepository) List(filter PromotionRuleListFilter) ([]models.PromotionRule, int64, error) {
	query := r.db.Model(&models.PromotionRule{})

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("LOWER(code) = LOWER(?)", code)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var rules []models.PromotionRule
	if err := query.Order("apply_order ASC, id DESC").Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

// Create 创建规则
func (r *GormPromotionRuleRepository) Create(rule *models.PromotionRule) error {
	return r.db.Create(rule).Error
}

// Update 更新规则
func (r *GormPromotionRuleRepository) Update(rule *models.PromotionRule) error {
	return r.db.Save(rule).Error
}

// Delete 删除规则
func (r *GormPromotionRuleRepository) Delete(id uint) error {
	return r.db.Delete(&models.PromotionRule{}, id).Error
}

// IncrementUsage 原子增减使用次数，delta 为负时不下穿 0
func (r *GormPromotionRuleRepository) IncrementUsage(id uint, delta int) error {
	if delta == 0 {
		return nil
	}
	query := r.db.Model(&models.PromotionRule{}).Where("id = ?", id)
	if delta < 0 {
		query = query.Where("current_usage >= ?", -delta)
	}
	return query.UpdateColumn("current_usage", gorm.Expr("current_usage + ?", delta)).Error
}
